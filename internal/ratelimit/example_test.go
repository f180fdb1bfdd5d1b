package ratelimit_test

import (
	"context"
	"fmt"
	"time"

	"dispatchdesk/internal/ratelimit"
)

func ExampleNewRateLimiter() {
	// Allow 100 forwarded requests per second
	limiter := ratelimit.NewRateLimiter(100)

	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			fmt.Println("Context cancelled")
			return
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("5 requests completed in under 100ms: %v\n", elapsed < 100*time.Millisecond)
	// Output: 5 requests completed in under 100ms: true
}

func ExampleRateLimiter_Rate() {
	limiter := ratelimit.NewRateLimiter(50)
	fmt.Printf("Backend capped at %d RPS\n", limiter.Rate())

	var unlimited *ratelimit.RateLimiter
	fmt.Printf("Unlimited reports %d\n", unlimited.Rate())
	// Output:
	// Backend capped at 50 RPS
	// Unlimited reports 0
}
