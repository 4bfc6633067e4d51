package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter is the injectable keyed counter guarding write endpoints.
// Check reports whether the call keyed by key is allowed under limit calls
// per window; when denied, retryAfter is the remaining time until the window
// resets.
type RateLimiter interface {
	Check(key string, limit int, window time.Duration) (ok bool, retryAfter time.Duration)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter is a fixed-window counter held in process memory. State
// is not persisted and resets on restart; acceptable because the limiter is
// advisory abuse protection, not a correctness guarantee.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) Check(key string, limit int, window time.Duration) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, exists := l.buckets[key]
	if !exists || now.After(b.resetAt) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
		return true, 0
	}
	if b.count < limit {
		b.count++
		return true, 0
	}
	return false, b.resetAt.Sub(now)
}

// RedisRateLimiter backs the same fixed-window semantics with a shared store
// so limits hold across instances.
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (l *RedisRateLimiter) Check(key string, limit int, window time.Duration) (bool, time.Duration) {
	ctx := context.Background()
	redisKey := "ratelimit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		// fail open: the limiter is advisory and must not take writes down
		// with the store
		return true, 0
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, window)
	}
	if count <= int64(limit) {
		return true, 0
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		return false, window
	}
	return false, ttl
}
