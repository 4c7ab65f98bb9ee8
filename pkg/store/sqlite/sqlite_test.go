package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chmielvu/Forge-Text/pkg/store"
	"github.com/chmielvu/Forge-Text/pkg/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.IndexCache { return openTemp(t) })
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, store.CacheEntry{Key: store.LatestKey, Version: 1, Timestamp: time.Now(), Payload: []byte("idx")}))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Get(ctx, store.LatestKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("idx"), got.Payload)
}
