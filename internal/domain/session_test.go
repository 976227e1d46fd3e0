package domain_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptlab/internal/domain"
)

// recordingSink captures analytics calls.
type recordingSink struct {
	mu       sync.Mutex
	requests []*domain.AnalyticsRequest
	err      error
}

func (s *recordingSink) Enrich(_ context.Context, req *domain.AnalyticsRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// recordingHistory captures history appends.
type recordingHistory struct {
	mu      sync.Mutex
	entries []domain.PromptHistoryEntry
}

func (h *recordingHistory) Add(_ context.Context, entry domain.PromptHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return nil
}

func (h *recordingHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func validRequest() *domain.GenerationRequest {
	return &domain.GenerationRequest{
		UserPrompt: "Hello",
		Provider:   "openai",
		Model:      "gpt-4",
	}
}

func TestSession_Generate(t *testing.T) {
	t.Run("should accumulate and expose the result", func(t *testing.T) {
		registry := newMockRegistry(&mockProvider{name: "openai"})
		session := domain.NewSession(registry, nil, nil, nil, 0)

		result, err := session.Generate(context.Background(), validRequest(), nil)
		require.NoError(t, err)
		require.Equal(t, "response from gpt-4", result.Text)
		require.Equal(t, domain.PhaseSucceeded, session.State().Phase())
		require.Equal(t, "response from gpt-4", session.Displayed())
	})

	t.Run("should reject validation errors before provider lookup", func(t *testing.T) {
		registry := newMockRegistry(&mockProvider{name: "openai"})
		session := domain.NewSession(registry, nil, nil, nil, 0)

		req := validRequest()
		req.UserPrompt = ""
		_, err := session.Generate(context.Background(), req, nil)
		require.ErrorIs(t, err, domain.ErrEmptyPrompt)
		require.Zero(t, atomic.LoadInt32(&registry.getCalls))
	})

	t.Run("should reject temperature outside range", func(t *testing.T) {
		session := domain.NewSession(newMockRegistry(), nil, nil, nil, 0)

		req := validRequest()
		req.Temperature = 2.5
		_, err := session.Generate(context.Background(), req, nil)
		require.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("should fire analytics and history on success", func(t *testing.T) {
		registry := newMockRegistry(&mockProvider{name: "openai"})
		sink := &recordingSink{}
		hist := &recordingHistory{}
		session := domain.NewSession(registry, sink, hist, nil, 0)

		_, err := session.Generate(context.Background(), validRequest(), nil)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return sink.count() == 1 && hist.count() == 1
		}, time.Second, time.Millisecond)

		hist.mu.Lock()
		entry := hist.entries[0]
		hist.mu.Unlock()
		require.Equal(t, domain.EntryGenerate, entry.Type)
		require.Equal(t, "response from gpt-4", entry.Response)
		require.NotEmpty(t, entry.ID)
	})

	t.Run("should swallow analytics failure", func(t *testing.T) {
		registry := newMockRegistry(&mockProvider{name: "openai"})
		sink := &recordingSink{err: errors.New("analytics down")}
		hist := &recordingHistory{}
		session := domain.NewSession(registry, sink, hist, nil, 0)

		_, err := session.Generate(context.Background(), validRequest(), nil)
		require.NoError(t, err)

		// History still appends even when analytics fails.
		require.Eventually(t, func() bool { return hist.count() == 1 }, time.Second, time.Millisecond)
	})

	t.Run("should keep partial text visible on stream error", func(t *testing.T) {
		streamErr := errors.New("connection reset")
		provider := &mockProvider{
			name: "openai",
			generateFunc: func(_ context.Context, _ *domain.GenerationRequest) (<-chan domain.StreamChunk, error) {
				return streamOf(
					domain.StreamChunk{Content: "partial"},
					domain.StreamChunk{Err: streamErr},
				), nil
			},
		}
		hist := &recordingHistory{}
		session := domain.NewSession(newMockRegistry(provider), nil, hist, nil, 0)

		result, err := session.Generate(context.Background(), validRequest(), nil)
		require.ErrorIs(t, err, streamErr)
		require.Equal(t, "partial", result.Text)
		require.Equal(t, domain.PhaseFailed, session.State().Phase())
		require.Equal(t, "partial", session.Displayed())

		// Error path never appends history.
		time.Sleep(10 * time.Millisecond)
		require.Zero(t, hist.count())
	})

	t.Run("should distinguish wall-clock timeout", func(t *testing.T) {
		provider := &mockProvider{
			name: "openai",
			generateFunc: func(_ context.Context, _ *domain.GenerationRequest) (<-chan domain.StreamChunk, error) {
				// Never delivers a terminal chunk.
				return make(chan domain.StreamChunk), nil
			},
		}
		session := domain.NewSession(newMockRegistry(provider), nil, nil, nil, 20*time.Millisecond)

		_, err := session.Generate(context.Background(), validRequest(), nil)
		require.ErrorIs(t, err, domain.ErrTimedOut)
		require.Equal(t, domain.PhaseFailed, session.State().Phase())
	})
}

func TestSession_Supersede(t *testing.T) {
	// A slow generation must not clobber the state of a newer one, and its
	// late result is dropped.
	release := make(chan struct{})
	var calls atomic.Int32
	provider := &mockProvider{
		name: "openai",
		generateFunc: func(_ context.Context, req *domain.GenerationRequest) (<-chan domain.StreamChunk, error) {
			if calls.Add(1) == 1 {
				out := make(chan domain.StreamChunk, 1)
				go func() {
					<-release
					out <- domain.StreamChunk{Content: "stale", IsComplete: true}
					close(out)
				}()
				return out, nil
			}
			return streamOf(domain.StreamChunk{Content: "fresh", IsComplete: true}), nil
		},
	}
	session := domain.NewSession(newMockRegistry(provider), nil, nil, nil, 0)

	firstDone := make(chan error, 1)
	go func() {
		_, err := session.Generate(context.Background(), validRequest(), nil)
		firstDone <- err
	}()

	require.Eventually(t, func() bool {
		return session.State().Phase() == domain.PhaseInFlight
	}, time.Second, time.Millisecond)

	// Issue a second generation while the first is still streaming.
	result, err := session.Generate(context.Background(), validRequest(), nil)
	require.NoError(t, err)
	require.Equal(t, "fresh", result.Text)

	close(release)
	require.ErrorIs(t, <-firstDone, domain.ErrSuperseded)
	require.Equal(t, "fresh", session.Displayed())
	require.Equal(t, domain.PhaseSucceeded, session.State().Phase())
}

func TestSession_SelectCandidate(t *testing.T) {
	provider := &mockProvider{
		name: "openai",
		generateFunc: func(_ context.Context, _ *domain.GenerationRequest) (<-chan domain.StreamChunk, error) {
			return streamOf(
				domain.StreamChunk{Content: `["A","B","C"]`, IsComplete: true},
			), nil
		},
	}
	session := domain.NewSession(newMockRegistry(provider), nil, nil, nil, 0)

	req := validRequest()
	req.CandidateCount = 3
	result, err := session.Generate(context.Background(), req, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, result.Candidates.Texts)
	require.Equal(t, "A", session.Displayed())

	text, err := session.SelectCandidate(2)
	require.NoError(t, err)
	require.Equal(t, "C", text)
	require.Equal(t, 2, session.SelectedIndex())
	// Selection never mutates the candidate set.
	require.Equal(t, []string{"A", "B", "C"}, session.Candidates().Texts)

	_, err = session.SelectCandidate(3)
	require.ErrorIs(t, err, domain.ErrCandidateIndex)
	require.Equal(t, 2, session.SelectedIndex())
}
