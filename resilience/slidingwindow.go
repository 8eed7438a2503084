package resilience

import (
	"sync"
	"time"
)

// SlidingWindowConfig configures a sliding window limiter.
type SlidingWindowConfig struct {
	// WindowSize is the duration of the trailing window.
	// Default: 1 second
	WindowSize time.Duration

	// MaxRequests is the maximum requests allowed within the window.
	// Default: 1
	MaxRequests int
}

// SlidingWindowLimiter tracks exact request timestamps within a trailing
// window. Unlike the token bucket it enforces a hard ceiling over any
// window-sized span, with no boundary double-burst, at the cost of O(n)
// bookkeeping per request. Expired entries are pruned lazily on access.
type SlidingWindowLimiter struct {
	mu          sync.Mutex
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
}

// NewSlidingWindowLimiter creates a sliding window limiter. Non-positive
// window size or request ceiling is coerced to the minimum rather than
// silently permitting unlimited throughput.
func NewSlidingWindowLimiter(config SlidingWindowConfig) *SlidingWindowLimiter {
	// Apply defaults
	if config.WindowSize <= 0 {
		config.WindowSize = time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 1
	}

	return &SlidingWindowLimiter{
		windowSize:  config.WindowSize,
		maxRequests: config.MaxRequests,
		requests:    make([]time.Time, 0, config.MaxRequests),
	}
}

// Allow checks if a request is allowed, recording it if so. Non-blocking.
func (rl *SlidingWindowLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.pruneLocked(now)

	if len(rl.requests) >= rl.maxRequests {
		return false
	}

	rl.requests = append(rl.requests, now)
	return true
}

// pruneLocked drops timestamps that have fallen out of the window.
// Must be called with the mutex held.
func (rl *SlidingWindowLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-rl.windowSize)

	// Timestamps are appended in order, so find the first still-valid one.
	i := 0
	for i < len(rl.requests) && !rl.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.requests = append(rl.requests[:0], rl.requests[i:]...)
	}
}

// RequestsInWindow returns how many requests are currently recorded in
// the window. Useful for monitoring.
func (rl *SlidingWindowLimiter) RequestsInWindow() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.pruneLocked(time.Now())
	return len(rl.requests)
}

// Reset discards all recorded requests.
func (rl *SlidingWindowLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.requests = rl.requests[:0]
}
