package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fin-analysis/internal/interfaces"
	"fin-analysis/internal/logger"
)

// Expiry classes. Identifier directories change rarely, per-company
// statement blobs change at most daily.
const (
	TTLDirectory  = 7 * 24 * time.Hour
	TTLStatements = 24 * time.Hour
)

var (
	// ErrUnavailable wraps backend failures. GetOrFetch never returns it.
	ErrUnavailable = errors.New("cache store unavailable")
	// ErrInvalidPayload is returned when a fetched payload is not JSON.
	ErrInvalidPayload = errors.New("payload is not valid JSON")
)

// FetchFunc produces the upstream payload on a cache miss
type FetchFunc func(ctx context.Context) ([]byte, error)

// Cache implements cache-aside over a CacheStore
type Cache struct {
	store      interfaces.CacheStore
	defaultTTL time.Duration
	warnOnce   sync.Once
}

// New creates a cache over store. A nil store behaves like an empty,
// always-available store that keeps nothing.
func New(store interfaces.CacheStore, defaultTTL time.Duration) *Cache {
	if store == nil {
		store = NopStore{}
	}
	if defaultTTL <= 0 {
		defaultTTL = TTLStatements
	}
	return &Cache{
		store:      store,
		defaultTTL: defaultTTL,
	}
}

// GetOrFetch returns the cached JSON for key or calls fetch and stores its
// result with the default expiry.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (json.RawMessage, error) {
	return c.GetOrFetchTTL(ctx, key, c.defaultTTL, fetch)
}

// GetOrFetchTTL is GetOrFetch with an explicit expiry.
// Store failures degrade to a direct fetch; only fetch errors are returned.
func (c *Cache) GetOrFetchTTL(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (json.RawMessage, error) {
	reachable := true

	data, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		reachable = false
		c.unavailable(ctx, key, fmt.Errorf("%w: get: %v", ErrUnavailable, err))
	case found && json.Valid(data):
		logger.CacheEvent(ctx, key, "hit")
		return json.RawMessage(data), nil
	case found:
		logger.Warn(ctx, "Ignoring malformed cache entry", "key", key)
	default:
		logger.CacheEvent(ctx, key, "miss")
	}

	fresh, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !json.Valid(fresh) {
		return nil, fmt.Errorf("%w (key %s)", ErrInvalidPayload, key)
	}

	if reachable {
		if err := c.store.Set(ctx, key, fresh, ttl); err != nil {
			c.unavailable(ctx, key, fmt.Errorf("%w: set: %v", ErrUnavailable, err))
		} else {
			logger.CacheEvent(ctx, key, "stored", "ttl", ttl.String())
		}
	}

	return json.RawMessage(fresh), nil
}

// unavailable reports a store failure: WARN the first time, DEBUG afterwards.
func (c *Cache) unavailable(ctx context.Context, key string, err error) {
	warned := false
	c.warnOnce.Do(func() {
		warned = true
		logger.Warn(ctx, "Cache store unavailable, continuing without cache", "key", key, "error", err)
	})
	if !warned {
		logger.Debug(ctx, "Cache store unavailable", "key", key, "error", err)
	}
	logger.CacheEvent(ctx, key, "unavailable")
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Key joins key parts with ':' (e.g. Key("sec", "facts", cik)).
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
