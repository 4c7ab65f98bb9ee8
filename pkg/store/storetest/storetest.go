// Package storetest holds behaviour checks shared by every IndexCache backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/chmielvu/Forge-Text/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the IndexCache contract against caches built by open.
func Run(t *testing.T, open func(t *testing.T) store.IndexCache) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key is a cache miss", func(t *testing.T) {
		c := open(t)
		_, err := c.Get(ctx, store.LatestKey)
		assert.ErrorIs(t, err, store.ErrCacheMiss)
	})

	t.Run("put then get", func(t *testing.T) {
		c := open(t)
		ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, c.Put(ctx, store.CacheEntry{
			Key: store.LatestKey, Version: 3, Timestamp: ts, Payload: []byte(`{"a":1}`),
		}))

		got, err := c.Get(ctx, store.LatestKey)
		require.NoError(t, err)
		assert.Equal(t, store.LatestKey, got.Key)
		assert.Equal(t, 3, got.Version)
		assert.True(t, ts.Equal(got.Timestamp), "timestamp %v != %v", got.Timestamp, ts)
		assert.Equal(t, []byte(`{"a":1}`), got.Payload)
	})

	t.Run("zero timestamp is stamped on put", func(t *testing.T) {
		c := open(t)
		before := time.Now().Truncate(time.Second)
		require.NoError(t, c.Put(ctx, store.CacheEntry{Key: "k", Version: 1, Payload: []byte("x")}))

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, got.Timestamp.Before(before), "timestamp %v before %v", got.Timestamp, before)
	})

	t.Run("put overwrites", func(t *testing.T) {
		c := open(t)
		now := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, c.Put(ctx, store.CacheEntry{Key: "k", Version: 1, Timestamp: now, Payload: []byte("old")}))
		require.NoError(t, c.Put(ctx, store.CacheEntry{Key: "k", Version: 2, Timestamp: now, Payload: []byte("new")}))

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		assert.Equal(t, []byte("new"), got.Payload)
	})

	t.Run("delete", func(t *testing.T) {
		c := open(t)
		require.NoError(t, c.Put(ctx, store.CacheEntry{Key: "k", Version: 1, Timestamp: time.Now(), Payload: []byte("x")}))
		require.NoError(t, c.Delete(ctx, "k"))

		_, err := c.Get(ctx, "k")
		assert.ErrorIs(t, err, store.ErrCacheMiss)
		assert.NoError(t, c.Delete(ctx, "never-stored"))
	})
}
