// Package pgx implements store.IndexCache on PostgreSQL.
package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chmielvu/Forge-Text/internal/util"
	"github.com/chmielvu/Forge-Text/pkg/logger"
	"github.com/chmielvu/Forge-Text/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

const schema = `CREATE TABLE IF NOT EXISTS index_cache (
	cache_key  TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	payload    BYTEA NOT NULL
)`

// Cache is a Postgres-backed IndexCache. The connection is owned by the
// caller; Close does not close it.
type Cache struct {
	conn pgxIConn
}

// NewCacheWithConnection creates the index_cache table if needed and
// returns a cache using conn (a *pgxpool.Pool or *pgx.Conn).
func NewCacheWithConnection(ctx context.Context, conn pgxIConn) (*Cache, error) {
	if _, err := conn.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create index_cache table: %w", err)
	}
	logger.Debug("[Cache][Postgres] index_cache table ready")
	return &Cache{conn: conn}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (store.CacheEntry, error) {
	entry := store.CacheEntry{Key: key}
	err := c.conn.QueryRow(ctx,
		`SELECT version, created_at, payload FROM index_cache WHERE cache_key = $1`,
		util.SanitizePostgresText(key),
	).Scan(&entry.Version, &entry.Timestamp, &entry.Payload)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return store.CacheEntry{}, store.ErrCacheMiss
		}
		return store.CacheEntry{}, fmt.Errorf("read cache entry %q: %w", key, err)
	}
	return entry, nil
}

func (c *Cache) Put(ctx context.Context, entry store.CacheEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := c.conn.Exec(ctx, `
		INSERT INTO index_cache (cache_key, version, created_at, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE SET
			version = EXCLUDED.version,
			created_at = EXCLUDED.created_at,
			payload = EXCLUDED.payload`,
		util.SanitizePostgresText(entry.Key), entry.Version, entry.Timestamp, entry.Payload)
	if err != nil {
		return fmt.Errorf("write cache entry %q: %w", entry.Key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.conn.Exec(ctx, `DELETE FROM index_cache WHERE cache_key = $1`, util.SanitizePostgresText(key)); err != nil {
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	return nil
}

func (c *Cache) Close() error { return nil }

var _ store.IndexCache = (*Cache)(nil)
