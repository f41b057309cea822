package vetspire

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two API calls (5 per second).
const DefaultInterval = 200 * time.Millisecond

// RateLimiter spaces outbound calls at least Interval apart. One limiter is
// shared by every call of a run.
type RateLimiter struct {
	limiter *rate.Limiter

	mu   sync.Mutex
	last time.Time
}

// NewRateLimiter returns a limiter for the given spacing. A zero or negative
// interval disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call is permitted or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.last = time.Now()
	r.mu.Unlock()
	return nil
}

// LastCall returns the time the last call was permitted, or the zero time.
func (r *RateLimiter) LastCall() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
