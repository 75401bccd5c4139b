package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	prometheus "github.com/dmitrijs2005/filestore/internal/metrics"
	"github.com/docker/go-metrics"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as plain redis strings with a native expiry.
type RedisStore struct {
	pool         redis.UniversalClient
	latencyTimer metrics.LabeledTimer
}

var _ Store = (*RedisStore)(nil)

var redisLatency = prometheus.CacheNamespace.NewLabeledTimer("redis", "Number of seconds taken by redis", "operation")

func NewRedisStore(pool redis.UniversalClient) *RedisStore {
	return &RedisStore{pool: pool, latencyTimer: redisLatency}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer s.latencyTimer.WithValues("Get").UpdateSince(start)

	b, err := s.pool.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

// Set stores value under key. A non-positive ttl stores without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer s.latencyTimer.WithValues("Set").UpdateSince(start)

	if ttl < 0 {
		ttl = 0
	}
	if err := s.pool.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx).Err()
}
