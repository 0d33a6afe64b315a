package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store, used in tests and single-process setups
// where cache persistence across restarts is not needed.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	embedding []float32
	createdAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// GetEntry returns the entry for key if present.
func (m *MemoryStore) GetEntry(ctx context.Context, key string) ([]float32, time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return e.embedding, e.createdAt, true, nil
}

// PutEntry stores the entry for key, overwriting any existing one.
func (m *MemoryStore) PutEntry(ctx context.Context, key string, embedding []float32, createdAt time.Time) error {
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	m.mu.Lock()
	m.entries[key] = memoryEntry{embedding: vec, createdAt: createdAt}
	m.mu.Unlock()
	return nil
}

// DeleteEntry removes the entry for key if present.
func (m *MemoryStore) DeleteEntry(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
