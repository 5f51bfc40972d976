package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	defaultWindow = time.Minute
	defaultLimit  = 5
)

var _ RateLimiter = (*SenderWindowLimiter)(nil)

type senderWindow struct {
	windowStart time.Time
	count       int
}

// SenderWindowLimiter is a process-local fixed-window limiter keyed by sender
// identity. State is not persisted across restarts; rate limiting here is
// best-effort bulk-send protection, not a correctness guarantee.
type SenderWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*senderWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewSenderWindowLimiter(limit int, window time.Duration) *SenderWindowLimiter {
	return newSenderWindowLimiter(limit, window, time.Now)
}

func newSenderWindowLimiter(limit int, window time.Duration, nowFn func() time.Time) *SenderWindowLimiter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &SenderWindowLimiter{
		windows: make(map[string]*senderWindow),
		limit:   limit,
		window:  window,
		now:     nowFn,
	}
}

func (l *SenderWindowLimiter) Allow(ctx context.Context, senderKey string) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	key := strings.ToLower(strings.TrimSpace(senderKey))
	if key == "" {
		return false, fmt.Errorf("sender key is required")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.windows[key]
	if !ok || now.Sub(state.windowStart) >= l.window {
		l.windows[key] = &senderWindow{windowStart: now, count: 1}
		return true, nil
	}

	if state.count < l.limit {
		state.count++
		return true, nil
	}

	return false, nil
}
