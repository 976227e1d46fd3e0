// Package history keeps the append-only log of past prompt/response pairs.
// The log lives in a single serialized slot behind the Storage interface so
// the store can run against Redis, SQLite or an in-memory fake unchanged.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/observability"
)

// MaxEntries caps the history length; the oldest entry is evicted first.
const MaxEntries = 50

// ErrNotFound indicates no history entry matched the given id.
var ErrNotFound = errors.New("history entry not found")

// Storage persists the serialized history slot. Implementations provide no
// transactional guarantees beyond single-writer-per-store; concurrent
// writers may race (accepted limitation).
type Storage interface {
	// Load returns the slot contents, or (nil, nil) when the slot is empty.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the slot contents.
	Save(ctx context.Context, data []byte) error

	// Clear empties the slot.
	Clear(ctx context.Context) error
}

// Store manages the capped prompt history. Entries are persisted
// oldest-first; the read path reverses so callers see newest-first.
type Store struct {
	mu      sync.Mutex
	storage Storage
}

// NewStore creates a history store over the given storage.
func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Add appends an entry and persists, trimming from the front once the
// length exceeds MaxEntries.
func (s *Store) Add(ctx context.Context, entry domain.PromptHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}

	return s.save(ctx, entries)
}

// List returns entries newest-first.
func (s *Store) List(ctx context.Context) ([]domain.PromptHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	reversed := make([]domain.PromptHistoryEntry, len(entries))
	for i, entry := range entries {
		reversed[len(entries)-1-i] = entry
	}
	return reversed, nil
}

// Remove deletes one entry by id, preserving the relative order of the rest.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := entries[:0]
	found := false
	for _, entry := range entries {
		if entry.ID == id {
			found = true
			continue
		}
		kept = append(kept, entry)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return s.save(ctx, kept)
}

// Clear empties the store.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Filter is a pure read over List's result: free-text search across
// prompts, response and model name, optionally narrowed by entry type.
// It never mutates storage.
func (s *Store) Filter(ctx context.Context, query string, entryType domain.EntryType) ([]domain.PromptHistoryEntry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))

	var matched []domain.PromptHistoryEntry
	for _, entry := range entries {
		if entryType != "" && entry.Type != entryType {
			continue
		}
		if query != "" && !matchesQuery(entry, query) {
			continue
		}
		matched = append(matched, entry)
	}
	return matched, nil
}

func matchesQuery(entry domain.PromptHistoryEntry, query string) bool {
	for _, field := range []string{entry.SystemPrompt, entry.UserPrompt, entry.Response, entry.Model} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func (s *Store) load(ctx context.Context) ([]domain.PromptHistoryEntry, error) {
	data, err := s.storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []domain.PromptHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt slot is logged and treated as empty rather than
		// wedging the whole history feature.
		observability.FromContext(ctx).Warn("discarding corrupt history slot",
			observability.Error(err))
		return nil, nil
	}
	return entries, nil
}

func (s *Store) save(ctx context.Context, entries []domain.PromptHistoryEntry) error {
	if entries == nil {
		entries = []domain.PromptHistoryEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.storage.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
