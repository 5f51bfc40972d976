package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aix-dean/mailcourier/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerWindow int64 = 5
	defaultWindowSeconds  int64 = 60
)

var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is a distributed per-sender window limiter backed by
// Redis, for deployments where multiple API replicas share a sender budget.
type RedisRateLimiter struct {
	client        *goredis.Client
	limit         int64
	windowSeconds int64
	now           func() time.Time
	script        *goredis.Script
}

func NewRedisRateLimiter(client *goredis.Client, limit int, window time.Duration) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, int64(limit), int64(window/time.Second), time.Now)
}

func newRedisRateLimiter(
	client *goredis.Client,
	limit int64,
	windowSeconds int64,
	nowFn func() time.Time,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limit <= 0 {
		limit = defaultLimitPerWindow
	}
	if windowSeconds <= 0 {
		windowSeconds = defaultWindowSeconds
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &RedisRateLimiter{
		client:        client,
		limit:         limit,
		windowSeconds: windowSeconds,
		now:           nowFn,
		script:        allowScript,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, senderKey string) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedKey := strings.ToLower(strings.TrimSpace(senderKey))
	if normalizedKey == "" {
		return false, fmt.Errorf("sender key is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	epoch := r.now().UTC().Unix()
	windowStart := epoch - epoch%r.windowSeconds
	key := fmt.Sprintf("ratelimit:sender:%s:%d", normalizedKey, windowStart)

	result, err := r.script.Run(ctx, r.client, []string{key}, r.limit, r.windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}
