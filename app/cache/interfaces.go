package cache

import (
	"context"
	"time"
)

// Store is a string key/value cache with per-key TTL. Get returns "" for
// a missing or expired key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
