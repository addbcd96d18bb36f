package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter is an in-process token bucket sized in requests per rolling
// 60-second window, with an optional minimum spacing between consecutive
// requests. Acquire blocks until capacity frees; it never drops or fails a
// call for lack of tokens. All state is confined behind a single mutex, per
// upstream host.
type RateLimiter struct {
	mu          sync.Mutex
	capacity    float64 // requests per minute
	tokens      float64
	minInterval time.Duration
	lastRefill  time.Time
	lastRequest time.Time

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter allowing requestsPerMinute calls per
// rolling minute with at least minInterval between consecutive calls.
func NewRateLimiter(requestsPerMinute int, minInterval time.Duration) *RateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	rl := &RateLimiter{
		capacity:    float64(requestsPerMinute),
		tokens:      float64(requestsPerMinute),
		minInterval: minInterval,
		now:         time.Now,
		sleep:       sleepCtx,
	}
	rl.lastRefill = rl.now()
	return rl
}

// Acquire consumes one token, sleeping as long as needed for the bucket to
// refill and for the minimum spacing to elapse. It returns early only when
// the context is cancelled.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := rl.tryTake()
		if ok {
			return nil
		}
		if err := rl.sleep(ctx, wait); err != nil {
			return fmt.Errorf("fetch: rate limiter wait: %w", err)
		}
	}
}

// tryTake refills the bucket, then either consumes a token (returning ok) or
// reports how long the caller should sleep before trying again.
func (rl *RateLimiter) tryTake() (wait time.Duration, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	// Refill proportionally to elapsed time: capacity tokens per 60s.
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed > 0 {
		rl.tokens += elapsed * rl.capacity / 60
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
		rl.lastRefill = now
	}

	// Enforce minimum spacing between consecutive requests.
	if rl.minInterval > 0 && !rl.lastRequest.IsZero() {
		if since := now.Sub(rl.lastRequest); since < rl.minInterval {
			return rl.minInterval - since, false
		}
	}

	if rl.tokens < 1 {
		// Time until one full token accrues.
		deficit := 1 - rl.tokens
		return time.Duration(deficit * 60 / rl.capacity * float64(time.Second)), false
	}

	rl.tokens--
	rl.lastRequest = now
	return 0, true
}

// sleepCtx sleeps for d, honouring context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
