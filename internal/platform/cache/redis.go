package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisStore implements Store on a shared Redis backend so that every worker
// process sees the same menu cache entries and version counter. Failures are
// treated as cache misses; the menu builder simply recomputes.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a RedisStore from a Redis URL
// (e.g. redis://localhost:6379/0).
func NewRedisStore(url string, logger zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: redis.NewClient(opts), logger: logger}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		}
		return nil, false
	}
	return data, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

func (s *RedisStore) Incr(ctx context.Context, key string) int64 {
	v, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis incr failed")
		return 0
	}
	return v
}

// Counter reads a counter without incrementing it. Missing keys and
// backend failures read as zero, which only forces a rebuild.
func (s *RedisStore) Counter(ctx context.Context, key string) int64 {
	v, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("redis counter read failed")
		}
		return 0
	}
	return v
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
