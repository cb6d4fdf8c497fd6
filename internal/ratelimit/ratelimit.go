// Package ratelimit limits report submissions per client.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/metrics"
)

// KeyPrefix namespaces report submission windows in Redis.
const KeyPrefix = "ratelimit:reports:"

// Limiter decides whether a client may submit another report.
type Limiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

// AllowAll admits every request. Used when rate limiting is off or Redis is
// unavailable.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, string) (bool, error) { return true, nil }

// admit keeps one sorted-set member per accepted request, scored by its
// arrival in milliseconds. Members older than the window are trimmed before
// counting.
var admit = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisLimiter is a sliding-window limiter shared by every sentry instance
// pointing at the same Redis. It does not own the client.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter admits at most limit requests per client within window.
func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter needs a redis client")
	}
	if limit <= 0 || window < time.Millisecond {
		return nil, fmt.Errorf("rate limit needs a positive limit and window, got %d per %s", limit, window)
	}
	return &RedisLimiter{client: client, limit: limit, window: window, now: time.Now}, nil
}

// Allow records the request when it fits in the window.
func (l *RedisLimiter) Allow(ctx context.Context, client string) (bool, error) {
	now := l.now().UnixMilli()
	admitted, err := admit.Run(ctx, l.client, []string{KeyPrefix + client},
		now, l.window.Milliseconds(), l.limit, uuid.NewString()).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check for %s: %w", client, err)
	}
	if admitted == 0 {
		metrics.RateLimitHits.Inc()
		return false, nil
	}
	return true, nil
}
