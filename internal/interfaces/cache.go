package interfaces

import (
	"context"
	"time"
)

// CacheStore is a key/value backend with per-entry expiry.
// Get reports found=false for both missing and expired keys.
type CacheStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
