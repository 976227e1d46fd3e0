package history

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory Storage, used in tests and as the default
// backend when neither Redis nor SQLite is configured.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns the slot contents.
func (m *MemoryStorage) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// Save replaces the slot contents.
func (m *MemoryStorage) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(data))
	copy(m.data, data)
	return nil
}

// Clear empties the slot.
func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
