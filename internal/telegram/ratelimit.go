package telegram

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter controls the frequency of requests to the telegram api.
// On top of the steady-state limit it honors server-imposed FLOOD_WAIT
// cooldowns.
type RateLimiter struct {
	limiter *rate.Limiter

	mu         sync.Mutex
	pauseUntil time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// DefaultRateLimiter returns a limiter with settings safe for history
// scraping without tripping the server-side flood detector.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(2.0, 1)
}

// Wait blocks until the next request is allowed or ctx is done. An active
// flood-wait cooldown is served first, then the steady-state limit.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if d := r.pauseRemaining(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

func (r *RateLimiter) pauseRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Until(r.pauseUntil)
}

// SetFloodWait pauses all requests for the given number of seconds. A
// shorter wait never trims a longer cooldown already in effect.
func (r *RateLimiter) SetFloodWait(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if until := time.Now().Add(time.Duration(seconds) * time.Second); until.After(r.pauseUntil) {
		r.pauseUntil = until
	}
}
