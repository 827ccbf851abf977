package cache

import (
	"context"
	"fmt"

	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/store"
)

// OpenStore creates the backend selected by cfg.Cache.Backend.
func OpenStore(ctx context.Context, cfg *store.Config) (interfaces.CacheStore, error) {
	switch cfg.Cache.Backend {
	case "", "memory":
		return NewMemoryStore(), nil

	case "none":
		return NopStore{}, nil

	case "file":
		fs, err := NewFileStore(cfg.Cache.FileDir)
		if err != nil {
			return nil, err
		}
		if removed, err := fs.CleanupExpired(); err == nil && removed > 0 {
			logger.Info(ctx, "Removed expired cache files", "count", removed, "dir", cfg.Cache.FileDir)
		}
		return fs, nil

	case "redis":
		return NewRedisStore(ctx, cfg.Cache.RedisURL)

	case "badger":
		return NewBadgerStore(cfg.Cache.BadgerPath)

	case "postgres":
		dbURL := store.APIKey(cfg.Cache.PostgresURLEnv)
		if dbURL == "" {
			return nil, fmt.Errorf("%s is not set", cfg.Cache.PostgresURLEnv)
		}
		return NewPostgresStore(ctx, dbURL)

	default:
		return nil, fmt.Errorf("unknown cache backend: %s (valid options: memory, file, redis, badger, postgres, none)", cfg.Cache.Backend)
	}
}

// NewFromConfig builds a Cache for cfg. A backend that cannot be opened
// downgrades to running without a cache rather than failing the caller.
func NewFromConfig(ctx context.Context, cfg *store.Config) *Cache {
	backend, err := OpenStore(ctx, cfg)
	if err != nil {
		logger.Warn(ctx, "Cache backend unavailable, continuing without cache",
			"backend", cfg.Cache.Backend,
			"error", err,
		)
		backend = NopStore{}
	}
	return New(backend, cfg.CacheTTL())
}
