package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"propshare/internal/logger"
)

const keyPrefix = "ratelimit:"

// RedisStore is a fixed-window limiter backed by Redis, for deployments
// where several API instances must share one admission budget. The window
// is an INCR counter whose TTL is set on the first hit.
//
// Admission control must never take writes down with it, so any Redis
// failure logs a warning and admits the request (fail open).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed limiter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Check implements Limiter.
func (s *RedisStore) Check(ctx context.Context, key string, limit int, window time.Duration) Result {
	redisKey := keyPrefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		logger.Get().Warnw("rate limit backend unavailable, admitting request",
			"key", key, "error", err.Error())
		return Result{Allowed: true, Remaining: limit, ResetAt: time.Now().Add(window)}
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			logger.Get().Warnw("rate limit expiry not set", "key", key, "error", err.Error())
		}
	}

	ttl, err := s.client.PTTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	resetAt := time.Now().Add(ttl)

	if int(count) > limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	return Result{Allowed: true, Remaining: limit - int(count), ResetAt: resetAt}
}
