package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/chmielvu/Forge-Text/pkg/store"
	"github.com/chmielvu/Forge-Text/pkg/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.IndexCache {
		return store.NewMemoryCache()
	})
}

func TestMemoryCacheCopiesPayload(t *testing.T) {
	c := store.NewMemoryCache()
	payload := []byte("abc")
	require.NoError(t, c.Put(context.Background(), store.CacheEntry{Key: "k", Payload: payload}))
	payload[0] = 'z'

	got, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got.Payload)
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	e := store.CacheEntry{Timestamp: now.Add(-2 * time.Hour)}

	assert.True(t, e.Expired(time.Hour, now))
	assert.False(t, e.Expired(3*time.Hour, now))
	assert.False(t, e.Expired(0, now))
}
