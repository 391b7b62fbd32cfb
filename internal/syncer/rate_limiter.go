package syncer

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter over local outbound request
// timestamps. It throttles proactively so the client never trips the
// backend's own limiter.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    []time.Time
}

// NewRateLimiter creates a limiter allowing maxRequests per window
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow reports whether another request may be sent at now
func (r *RateLimiter) Allow(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(now)
	return len(r.requests) < r.maxRequests
}

// Record registers an outbound request at now
func (r *RateLimiter) Record(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(now)
	r.requests = append(r.requests, now)
}

// ResetTime returns when the oldest in-window request falls out of the
// window, i.e. the earliest time the next request becomes allowed.
// Returns now when the limiter is not saturated.
func (r *RateLimiter) ResetTime(now time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(now)
	if len(r.requests) < r.maxRequests {
		return now
	}
	return r.requests[0].Add(r.window)
}

func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.requests) && !r.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.requests = r.requests[i:]
	}
}
