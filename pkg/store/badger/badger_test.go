package badger

import (
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/store"
	"github.com/chmielvu/Forge-Text/pkg/store/storetest"

	"github.com/stretchr/testify/require"
)

func TestCacheContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.IndexCache {
		c, err := Open("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestCacheOnDisk(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.IndexCache {
		c, err := Open(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}
