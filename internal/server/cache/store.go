// Package cache implements the cache-aside layer that shields the catalog
// from repeated lookups. The cache is never authoritative: entries are
// plain value snapshots bounded by a TTL and are never invalidated by
// writers.
package cache

import (
	"context"
	"time"
)

// Store is a key/value store with get/set-with-ttl semantics.
// Get returns common.ErrCacheMiss for an absent or expired key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}
