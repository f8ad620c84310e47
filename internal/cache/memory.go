package cache

import (
	"context"
	"sync"
	"time"

	"github.com/electwix/chartcache/internal/dataset"
)

// memoryEntry is a stored dataset plus its expiry deadline.
type memoryEntry struct {
	data      *dataset.Dataset
	expiresAt time.Time
}

// MemoryStrategy keeps entries in an in-process map. It shares nothing
// across processes and is intended for tests and single-process setups.
type MemoryStrategy struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]memoryEntry
}

// NewMemoryStrategy creates an in-memory cache strategy.
func NewMemoryStrategy(ttl time.Duration) *MemoryStrategy {
	return &MemoryStrategy{
		ttl:   ttl,
		items: make(map[string]memoryEntry),
	}
}

// Get returns the cached dataset for key if present and not expired.
func (m *MemoryStrategy) Get(_ context.Context, key string) (*dataset.Dataset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.items[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// Set stores the dataset under key, stamped with the configured TTL.
func (m *MemoryStrategy) Set(_ context.Context, key string, d *dataset.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = memoryEntry{
		data:      d,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// Invalidate removes the entry for key.
func (m *MemoryStrategy) Invalidate(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
}

// Clear removes all entries.
func (m *MemoryStrategy) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]memoryEntry)
}

// PruneExpired removes entries past their deadline.
func (m *MemoryStrategy) PruneExpired(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, entry := range m.items {
		if now.After(entry.expiresAt) {
			delete(m.items, key)
		}
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// pruned.
func (m *MemoryStrategy) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

var (
	_ Strategy = (*MemoryStrategy)(nil)
	_ Pruner   = (*MemoryStrategy)(nil)
)
