package ratelimit

import "context"

// RateLimiter throttles sends to the filtering-sensitive cohort per sender
// identity. Allow returns false when the sender has exhausted its window;
// callers surface that as a retryable "try later" condition, never as a hard
// delivery failure.
type RateLimiter interface {
	Allow(ctx context.Context, senderKey string) (bool, error)
}
