// Package bootstrap builds the engine and its backends from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chmielvu/Forge-Text/internal/storage"
	"github.com/chmielvu/Forge-Text/pkg/ai"
	oai "github.com/chmielvu/Forge-Text/pkg/ai/ollama"
	gai "github.com/chmielvu/Forge-Text/pkg/ai/openai"
	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/config"
	"github.com/chmielvu/Forge-Text/pkg/engine"
	"github.com/chmielvu/Forge-Text/pkg/layout"
	"github.com/chmielvu/Forge-Text/pkg/logger"
	"github.com/chmielvu/Forge-Text/pkg/logger/console"
	"github.com/chmielvu/Forge-Text/pkg/logger/zaplog"
	"github.com/chmielvu/Forge-Text/pkg/store"
	badgerstore "github.com/chmielvu/Forge-Text/pkg/store/badger"
	pgstore "github.com/chmielvu/Forge-Text/pkg/store/pgx"
	sqlitestore "github.com/chmielvu/Forge-Text/pkg/store/sqlite"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitLogger installs the zap JSON logger for LOG_FORMAT=json and the
// console logger (styled or logfmt) otherwise.
func InitLogger(cfg config.Config) error {
	if cfg.LogFormat == "json" {
		l, err := zaplog.NewZapLogger(zaplog.ZapLoggerParams{Debug: cfg.Debug, JSON: true})
		if err != nil {
			return fmt.Errorf("create zap logger: %w", err)
		}
		logger.Init(l)
		return nil
	}
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Logfmt: cfg.LogFormat == "logfmt",
	}))
	return nil
}

// Cache opens the configured index cache. The returned closer releases it
// and any connection it owns.
func Cache(ctx context.Context, cfg config.Cache) (store.IndexCache, func() error, error) {
	switch cfg.Backend {
	case "memory":
		c := store.NewMemoryCache()
		return c, c.Close, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
		c, err := sqlitestore.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "badger":
		c, err := badgerstore.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		c, err := pgstore.NewCacheWithConnection(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return c, func() error {
			err := c.Close()
			pool.Close()
			return err
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

// Summarizer returns the community summarizer, or nil for "none" so every
// community gets the fallback summary.
func Summarizer(cfg config.AI) (ai.Summarizer, error) {
	switch cfg.Adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			Model:                 cfg.ChatModel,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.ChatKey,
			MaxConcurrentRequests: int64(cfg.ParallelReq),
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Ollama client: %w", err)
		}
		return ai.NewSummarizer(client), nil
	case "openai":
		if cfg.ChatKey == "" {
			return nil, errors.New("AI_ADAPTER=openai needs AI_CHAT_KEY")
		}
		return ai.NewSummarizer(gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			Model:   cfg.ChatModel,
			ChatURL: cfg.ChatURL,
			ChatKey: cfg.ChatKey,
		})), nil
	}
	return nil, nil
}

func LayoutExecutor(name string) layout.Executor {
	if name == "inline" {
		return layout.Inline{}
	}
	return layout.NewWorker()
}

// SnapshotStore opens the configured save-file store.
func SnapshotStore(ctx context.Context, cfg config.Snapshots) (storage.SnapshotStore, error) {
	if cfg.Backend == "s3" {
		client, err := storage.NewS3Client(ctx, storage.S3Params{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(client, cfg.S3Bucket), nil
	}
	return storage.NewFileStore(cfg.Dir)
}

// Runtime is a ready controller plus the backends behind it.
type Runtime struct {
	Controller *engine.Controller
	Snapshots  storage.SnapshotStore

	closeCache func() error
}

// New wires the controller from cfg. When SNAPSHOT_RESTORE names a saved
// snapshot the graph starts from it; otherwise the cast is bootstrapped.
func New(ctx context.Context, cfg config.Config) (*Runtime, error) {
	cache, closeCache, err := Cache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open index cache: %w", err)
	}

	summarizer, err := Summarizer(cfg.AI)
	if err != nil {
		_ = closeCache()
		return nil, err
	}

	snapshots, err := SnapshotStore(ctx, cfg.Store)
	if err != nil {
		_ = closeCache()
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	var seed common.Snapshot
	if cfg.Store.Restore != "" {
		seed, err = snapshots.Load(ctx, cfg.Store.Restore)
		switch {
		case errors.Is(err, storage.ErrSnapshotNotFound):
			logger.Warn("[Bootstrap] Snapshot to restore not found, starting fresh", "name", cfg.Store.Restore)
		case err != nil:
			_ = closeCache()
			return nil, fmt.Errorf("load snapshot %s: %w", cfg.Store.Restore, err)
		default:
			logger.Info("[Bootstrap] Restoring snapshot", "name", cfg.Store.Restore, "nodes", len(seed.Nodes))
		}
	}

	e := cfg.Engine
	ctrl := engine.NewController(engine.NewControllerParams{
		Snapshot:                  seed,
		Cache:                     cache,
		Summarizer:                summarizer,
		LayoutExecutor:            LayoutExecutor(e.LayoutExecutor),
		Resolver:                  e.Resolver(),
		Query:                     e.QueryParams(),
		Decay:                     e.DecayConfig(),
		Layout:                    e.LayoutSettings(),
		Subject:                   e.Subject,
		PruneThreshold:            e.PruneThreshold,
		PruneProbability:          e.PruneProbability,
		BootstrapLayoutIterations: e.BootstrapLayoutIterations,
		BetweennessCeiling:        e.BetweennessCeiling,
	})

	logger.Info("[Bootstrap] Engine ready",
		"cache", cfg.Cache.Backend,
		"ai", cfg.AI.Adapter,
		"snapshots", cfg.Store.Backend,
		"layout", e.LayoutExecutor,
	)
	return &Runtime{Controller: ctrl, Snapshots: snapshots, closeCache: closeCache}, nil
}

// Close stops the controller and releases the cache.
func (r *Runtime) Close() error {
	return errors.Join(r.Controller.Close(), r.closeCache())
}
