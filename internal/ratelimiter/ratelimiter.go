package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles operations using the token bucket algorithm.
//
// This wraps golang.org/x/time/rate to provide:
//   - Token bucket limiting (allows bursts while enforcing a sustained rate)
//   - Context-aware waiting (respects cancellation)
//   - Thread-safe operation
//
// The engine uses it to pace backend-heavy maintenance work, such as the
// garbage collector's content deletions against S3, so background jobs
// never starve foreground operations of backend throughput.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter with the specified rate and burst capacity.
//
// Parameters:
//   - opsPerSecond: Maximum sustained rate (tokens added per second)
//   - burst: Maximum burst size (bucket capacity in tokens)
//
// Special cases:
//   - opsPerSecond = 0: No rate limiting (effectively unlimited)
//
// Returns a configured RateLimiter.
func New(opsPerSecond, burst uint) *RateLimiter {
	if opsPerSecond == 0 {
		// rate.Inf would be ideal but has edge cases, so use a large value
		opsPerSecond = 1_000_000_000
		burst = opsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(opsPerSecond), int(burst)),
	}
}

// Allow reports whether one operation may proceed right now.
//
// This is the fast path: it returns immediately without waiting, consuming
// a token on success. Use it to reject work that exceeds the limit.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
//
// Use this to throttle work rather than reject it. Returns nil once a
// token was acquired, or the context error if cancelled first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the current number of available tokens.
//
// Primarily useful for monitoring and tests. The value may change
// immediately after the call due to concurrent access or replenishment.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
