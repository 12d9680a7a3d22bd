package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces a sequential loop using the token bucket algorithm.
//
// A nil *RateLimiter never waits, so callers can keep one unconditionally.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing perSecond operations per second with bursts
// of up to burst operations. A burst of 0 is raised to 1 so the limiter can
// make progress at all.
//
// Returns nil when perSecond is 0 (unlimited).
func New(perSecond, burst uint) *RateLimiter {
	if perSecond == 0 {
		return nil
	}
	if burst == 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(burst)),
	}
}

// Wait blocks until the next operation may start or ctx is done.
//
// Returns:
//   - nil if a token was acquired
//   - an error if ctx was cancelled, or its deadline comes before a token
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// Limit returns the configured operations per second, 0 when unlimited.
func (r *RateLimiter) Limit() uint {
	if r == nil {
		return 0
	}
	return uint(r.limiter.Limit())
}
