// Package ratelimit provides the token bucket used to cap requests to the backend.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing rps requests per second with a
// burst of rps. If rps is 0 or negative, returns nil (no rate limiting).
func NewRateLimiter(rps int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Wait blocks until a request may proceed or ctx is done.
// A nil limiter never blocks.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Rate returns the allowed requests per second, or 0 when unlimited.
func (r *RateLimiter) Rate() int {
	if r == nil {
		return 0
	}
	return int(r.limiter.Limit())
}
