// Package ratelimit bounds how fast a single organization may drive state
// transitions. Limits are per tenant, never global, so one noisy pipeline
// cannot starve the rest.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether an organization may perform one more transition
// inside the current window.
type Limiter interface {
	Allow(ctx context.Context, organizationID string) (bool, error)
	Close() error
}

// RedisLimiter implements a fixed-window counter in Redis, shared across
// API replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter connects to Redis and verifies the connection before
// returning.
func NewRedisLimiter(ctx context.Context, redisURL string, limit int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, organizationID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:transitions:%s:%d", organizationID, time.Now().Unix()/int64(l.window.Seconds()))

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// MemoryLimiter is the single-process implementation used in tests and
// local development. Counters live behind a mutex and are created lazily on
// first use; Reset clears them between test cases.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	counts  map[string]int
	started map[string]time.Time

	// now is swappable so window expiry is deterministic in tests.
	now func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		limit:  limit,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
	l.Reset()

	return l
}

// Reset clears all counters.
func (l *MemoryLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts = make(map[string]int)
	l.started = make(map[string]time.Time)
}

func (l *MemoryLimiter) Allow(_ context.Context, organizationID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if started, ok := l.started[organizationID]; !ok || now.Sub(started) >= l.window {
		l.started[organizationID] = now
		l.counts[organizationID] = 0
	}

	l.counts[organizationID]++

	return l.counts[organizationID] <= l.limit, nil
}

func (l *MemoryLimiter) Close() error {
	return nil
}
