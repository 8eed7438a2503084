package resilience

import (
	"context"
	"sync"
	"time"
)

// waitPollInterval is how often Wait re-attempts acquisition. Kept short so
// context cancellation is observed promptly.
const waitPollInterval = 10 * time.Millisecond

// Limiter is the minimal surface shared by both rate limiter variants.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: being rate limited is a normal false outcome, never an error.
type Limiter interface {
	// Allow reports whether one request may proceed, consuming it if so.
	Allow() bool
}

// TokenBucketConfig configures a token bucket limiter.
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens the bucket holds.
	// Bursts up to this size are permitted. Default: 1
	Capacity float64

	// RefillRate is the number of tokens added per second.
	// This is the sustained rate. Default: 1
	RefillRate float64
}

// TokenBucketLimiter implements the token bucket algorithm. The bucket
// starts full, drains one token per permitted request, and refills
// continuously at RefillRate. Refill is computed lazily on every access;
// there is no background timer.
//
// A single instance is meant to be shared by all callers protecting one
// dependency. Constructing a limiter per call defeats the accounting.
type TokenBucketLimiter struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
}

// NewTokenBucketLimiter creates a token bucket limiter with a full bucket.
// Non-positive capacity or refill rate is coerced to 1 rather than
// silently permitting unlimited throughput.
func NewTokenBucketLimiter(config TokenBucketConfig) *TokenBucketLimiter {
	// Apply defaults
	if config.Capacity <= 0 {
		config.Capacity = 1
	}
	if config.RefillRate <= 0 {
		config.RefillRate = 1
	}

	return &TokenBucketLimiter{
		capacity:   config.Capacity,
		tokens:     config.Capacity,
		refillRate: config.RefillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request is allowed, consuming one token if so.
// Non-blocking.
func (rl *TokenBucketLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN checks if n tokens are available and consumes them atomically:
// either all n are taken or none are. n larger than the bucket capacity
// can never be satisfied and always returns false.
func (rl *TokenBucketLimiter) AllowN(n float64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()

	if rl.tokens >= n {
		rl.tokens -= n
		return true
	}
	return false
}

// Wait blocks until one token is available or the context ends.
// Returns nil on acquisition, the context's error on cancellation.
func (rl *TokenBucketLimiter) Wait(ctx context.Context) error {
	return rl.WaitN(ctx, 1)
}

// WaitN blocks until n tokens are available or the context ends.
func (rl *TokenBucketLimiter) WaitN(ctx context.Context, n float64) error {
	// Fast path: already satisfiable
	if rl.AllowN(n) {
		return nil
	}

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if rl.AllowN(n) {
				return nil
			}
		}
	}
}

// refillLocked adds tokens for the elapsed time since the last refill,
// capped at capacity. Must be called with the mutex held.
func (rl *TokenBucketLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
}

// Tokens returns the current number of available tokens without consuming
// any. Useful for monitoring.
func (rl *TokenBucketLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// Capacity returns the configured bucket capacity.
func (rl *TokenBucketLimiter) Capacity() float64 {
	return rl.capacity
}

// SetRate adjusts the refill rate. Pending refill is applied at the old
// rate first, so the change only affects tokens earned from now on.
func (rl *TokenBucketLimiter) SetRate(newRate float64) {
	if newRate <= 0 {
		newRate = 1
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	rl.refillRate = newRate
}

// Reset refills the bucket to full capacity.
func (rl *TokenBucketLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = rl.capacity
	rl.lastRefill = time.Now()
}
