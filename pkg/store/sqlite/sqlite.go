// Package sqlite implements store.IndexCache on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chmielvu/Forge-Text/pkg/store"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const schema = `CREATE TABLE IF NOT EXISTS index_cache (
	cache_key  TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	payload    BLOB NOT NULL
)`

// Cache is a SQLite-backed IndexCache holding one row per cache key.
type Cache struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create index_cache table: %w", err)
	}

	return &Cache{sqlDB: sqlDB}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (store.CacheEntry, error) {
	row := c.sqlDB.QueryRowContext(ctx,
		`SELECT version, created_at, payload FROM index_cache WHERE cache_key = ?`, key)

	var (
		entry   = store.CacheEntry{Key: key}
		created string
	)
	if err := row.Scan(&entry.Version, &created, &entry.Payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.CacheEntry{}, store.ErrCacheMiss
		}
		return store.CacheEntry{}, fmt.Errorf("read cache entry %q: %w", key, err)
	}

	ts, err := time.Parse(timeFormat, created)
	if err != nil {
		return store.CacheEntry{}, fmt.Errorf("parse cache timestamp %q: %w", created, err)
	}
	entry.Timestamp = ts
	return entry, nil
}

func (c *Cache) Put(ctx context.Context, entry store.CacheEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := c.sqlDB.ExecContext(ctx, `
		INSERT INTO index_cache (cache_key, version, created_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			version = excluded.version,
			created_at = excluded.created_at,
			payload = excluded.payload`,
		entry.Key, entry.Version, entry.Timestamp.UTC().Format(timeFormat), entry.Payload)
	if err != nil {
		return fmt.Errorf("write cache entry %q: %w", entry.Key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.sqlDB.ExecContext(ctx, `DELETE FROM index_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying SQLite database.
func (c *Cache) Close() error {
	if c == nil || c.sqlDB == nil {
		return nil
	}
	return c.sqlDB.Close()
}

var _ store.IndexCache = (*Cache)(nil)
