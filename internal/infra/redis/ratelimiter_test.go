package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(rdb, 2, 60, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(context.Background(), "sales@acme.example")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "sales@acme.example")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third call within window should be rejected")
	}

	now = now.Add(60 * time.Second)
	allowed, err = limiter.Allow(context.Background(), "sales@acme.example")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("next window should allow call")
	}
}

func TestRedisRateLimiterAllowPerSender(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newRedisRateLimiter(rdb, 1, 60, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), "sales@acme.example")
	if err != nil {
		t.Fatalf("Allow(sales) error = %v", err)
	}
	if !allowed {
		t.Fatal("sales should be allowed on first request")
	}

	allowed, err = limiter.Allow(context.Background(), "ops@acme.example")
	if err != nil {
		t.Fatalf("Allow(ops) error = %v", err)
	}
	if !allowed {
		t.Fatal("ops should be allowed on first request")
	}

	allowed, err = limiter.Allow(context.Background(), "Sales@acme.example")
	if err != nil {
		t.Fatalf("Allow(sales) error = %v", err)
	}
	if allowed {
		t.Fatal("sales second request should be rejected regardless of case")
	}
}

func TestRedisRateLimiterRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := newRedisRateLimiter(nil, 5, 60, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestRedisRateLimiterEmptySenderKey(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	limiter, err := NewRedisRateLimiter(rdb, 5, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty sender key")
	}
}

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb
}
