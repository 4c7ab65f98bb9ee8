package store

import (
	"context"
	"errors"
	"time"
)

// LatestKey is the cache key under which the current retrieval index is kept.
const LatestKey = "latest"

// ErrCacheMiss is returned by IndexCache.Get when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// CacheEntry is one row of the index cache. Payload is opaque to the cache;
// Version and Timestamp let readers decide whether the entry is still usable.
type CacheEntry struct {
	Key       string
	Version   int
	Timestamp time.Time
	Payload   []byte
}

// Expired reports whether the entry is older than ttl at now. A non-positive
// ttl never expires.
func (e CacheEntry) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.Timestamp) > ttl
}

// IndexCache persists derived retrieval indices. The cache is disposable:
// losing its content only costs a rebuild. Put overwrites any prior value
// stored under the same key.
type IndexCache interface {
	Get(ctx context.Context, key string) (CacheEntry, error)
	Put(ctx context.Context, entry CacheEntry) error
	Delete(ctx context.Context, key string) error
	Close() error
}
