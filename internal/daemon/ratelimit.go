package daemon

import (
	"sync"

	"golang.org/x/time/rate"
)

// firmLimiter keeps one token bucket per firm. A non-positive rate disables
// limiting.
type firmLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newFirmLimiter(perSecond float64, burst int) *firmLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &firmLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *firmLimiter) allow(firmID string) bool {
	if f == nil || f.limit <= 0 {
		return true
	}
	f.mu.Lock()
	limiter, ok := f.limiters[firmID]
	if !ok {
		limiter = rate.NewLimiter(f.limit, f.burst)
		f.limiters[firmID] = limiter
	}
	f.mu.Unlock()
	return limiter.Allow()
}
