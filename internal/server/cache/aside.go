package cache

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/logging"
	prometheus "github.com/dmitrijs2005/filestore/internal/metrics"
)

// Operation names used as key prefixes. None of them contains ':'.
const (
	OpFileByPath     = "file_by_path"
	OpPathByID       = "path_by_id"
	OpFilesForUserID = "files_for_user_id"
)

var (
	// cacheCount is the number of total cache request received/hits/misses/errors
	cacheCount = prometheus.CacheNamespace.NewLabeledCounter("aside", "The number of cache-aside lookups", "type", "schema")
)

// Key derives the cache key for one logical query. op is one of the Op
// constants; because op never contains ':' the first separator splits the
// key unambiguously, so distinct (op, arg) pairs never collide.
func Key(op, arg string) string {
	return op + ":" + arg
}

// Aside binds a Store to a default TTL and a logger. It is passed into the
// services that need it rather than held globally.
type Aside struct {
	store      Store
	defaultTTL time.Duration
	logger     logging.Logger
}

func NewAside(store Store, defaultTTL time.Duration, logger logging.Logger) *Aside {
	return &Aside{store: store, defaultTTL: defaultTTL, logger: logger.With("module", "cache")}
}

// Store exposes the underlying store for health probing.
func (a *Aside) Store() Store {
	return a.store
}

// GetOrCompute returns the cached value for key or, on a miss, the result
// of compute, which is then stored best-effort with ttl (the default when
// ttl is zero).
//
// compute must be a read: on a hit it is never called. Errors from compute,
// including not-found, are returned as-is and nothing is cached for them.
// Cache read, decode and write failures are logged and never returned.
func GetOrCompute[T any](ctx context.Context, a *Aside, key string, compute func(context.Context) (T, error), schema Schema[T], ttl time.Duration) (T, error) {
	cacheCount.WithValues("Request", schema.Name).Inc(1)

	raw, err := a.store.Get(ctx, key)
	switch {
	case err == nil:
		v, decErr := schema.Decode(raw)
		if decErr == nil {
			cacheCount.WithValues("Hit", schema.Name).Inc(1)
			return v, nil
		}
		cacheCount.WithValues("Error", schema.Name).Inc(1)
		a.logger.Warn(ctx, "discarding undecodable cache entry", "key", key, "error", decErr)
	case isMiss(err):
		cacheCount.WithValues("Miss", schema.Name).Inc(1)
	default:
		cacheCount.WithValues("Error", schema.Name).Inc(1)
		a.logger.Warn(ctx, "cache read failed, falling back to catalog", "key", key, "error", err)
	}

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	put(ctx, a, key, v, schema, ttl)
	return v, nil
}

func (a *Aside) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return a.defaultTTL
	}
	return ttl
}

func put[T any](ctx context.Context, a *Aside, key string, v T, schema Schema[T], ttl time.Duration) {
	b, err := schema.Encode(v)
	if err != nil {
		a.logger.Warn(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := a.store.Set(ctx, key, b, a.ttlOrDefault(ttl)); err != nil {
		cacheCount.WithValues("Error", schema.Name).Inc(1)
		a.logger.Warn(ctx, "cache write failed", "key", key, "error", err)
	}
}

func isMiss(err error) bool {
	return errors.Is(err, common.ErrCacheMiss)
}
