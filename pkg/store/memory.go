package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryCache is an IndexCache that lives only as long as the process.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]CacheEntry)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) (CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return CacheEntry{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return CacheEntry{}, ErrCacheMiss
	}
	e.Payload = slices.Clone(e.Payload)
	return e, nil
}

func (m *MemoryCache) Put(ctx context.Context, entry CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry.Payload = slices.Clone(entry.Payload)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.entries[entry.Key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Close() error { return nil }

var _ IndexCache = (*MemoryCache)(nil)
