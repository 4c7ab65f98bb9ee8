// Package badger implements store.IndexCache on an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chmielvu/Forge-Text/pkg/store"
	"github.com/dgraph-io/badger/v4"
)

const prefix = "index_cache/"

// Cache stores each entry as a JSON document under "index_cache/<key>".
type Cache struct {
	db *badger.DB
}

type record struct {
	Version   int    `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Payload   []byte `json:"payload"`
}

// Open opens a BadgerDB in dir. An empty dir opens an in-memory database,
// which is what tests use.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &Cache{db: db}, nil
}

func cacheKey(key string) []byte {
	return []byte(prefix + key)
}

func (c *Cache) Get(ctx context.Context, key string) (store.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return store.CacheEntry{}, err
	}

	var rec record
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrCacheMiss
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrCacheMiss) {
			return store.CacheEntry{}, err
		}
		return store.CacheEntry{}, fmt.Errorf("read cache entry %q: %w", key, err)
	}

	return store.CacheEntry{
		Key:       key,
		Version:   rec.Version,
		Timestamp: time.UnixMilli(rec.Timestamp),
		Payload:   rec.Payload,
	}, nil
}

func (c *Cache) Put(ctx context.Context, entry store.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	val, err := json.Marshal(record{
		Version:   entry.Version,
		Timestamp: entry.Timestamp.UnixMilli(),
		Payload:   entry.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", entry.Key, err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(entry.Key), val)
	})
	if err != nil {
		return fmt.Errorf("write cache entry %q: %w", entry.Key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cacheKey(key))
	})
}

func (c *Cache) Close() error {
	return c.db.Close()
}

var _ store.IndexCache = (*Cache)(nil)
