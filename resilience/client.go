package resilience

import (
	"context"
	"fmt"
	"time"
)

// RateLimitConfig configures the resilient client's optional token
// bucket limiter.
type RateLimitConfig struct {
	// Capacity is the maximum burst size. Default: 1
	Capacity float64

	// RefillRate is the sustained tokens per second. Default: 1
	RefillRate float64
}

// ResilientClientConfig configures a resilient client.
type ResilientClientConfig struct {
	// CircuitBreaker configures the breaker; zero values get defaults.
	CircuitBreaker CircuitBreakerConfig

	// Retry configures the retrier; zero values get defaults.
	Retry RetryConfig

	// RateLimit enables rate limiting when non-nil.
	RateLimit *RateLimitConfig

	// Bulkhead enables a concurrency cap when non-nil.
	Bulkhead *BulkheadConfig

	// AttemptTimeout bounds each individual attempt when positive.
	AttemptTimeout time.Duration
}

// ResilientClient composes rate limiting, circuit breaking, and retry
// around a caller-supplied operation, in that fixed order:
//
//  1. The rate limiter sheds load before any dependency contact.
//  2. The circuit breaker fails fast against a known-bad dependency.
//  3. The retrier absorbs transient failures.
//
// The breaker records the outcome after retries: a transient failure
// recovered by retry counts as one success, and exhausted retries count
// as one failure.
//
// One client is meant to be shared by all callers of one dependency.
type ResilientClient struct {
	circuitBreaker *CircuitBreaker
	retrier        *Retrier
	rateLimiter    *TokenBucketLimiter
	bulkhead       *Bulkhead
	attemptTimeout *Timeout
}

// NewResilientClient creates a resilient client from the given
// configuration.
func NewResilientClient(config ResilientClientConfig) *ResilientClient {
	client := &ResilientClient{
		circuitBreaker: NewCircuitBreaker(config.CircuitBreaker),
		retrier:        NewRetrier(config.Retry),
	}

	if config.RateLimit != nil {
		client.rateLimiter = NewTokenBucketLimiter(TokenBucketConfig{
			Capacity:   config.RateLimit.Capacity,
			RefillRate: config.RateLimit.RefillRate,
		})
	}
	if config.Bulkhead != nil {
		client.bulkhead = NewBulkhead(*config.Bulkhead)
	}
	if config.AttemptTimeout > 0 {
		client.attemptTimeout = NewTimeout(TimeoutConfig{Timeout: config.AttemptTimeout})
	}

	return client
}

// Execute runs the operation through the configured layers. The returned
// error identifies which layer rejected the call: ErrRateLimited,
// ErrBulkheadFull, ErrCircuitOpen, ErrTooManyConcurrent, or the
// operation's own error (wrapped with attempt accounting when retries
// were exhausted, reachable via errors.Is/errors.As).
func (rc *ResilientClient) Execute(ctx context.Context, fn func(context.Context) error) error {
	// A denied rate-limit check never touches the breaker or retrier.
	if rc.rateLimiter != nil {
		if !rc.rateLimiter.Allow() {
			return ErrRateLimited
		}
	}

	attempt := fn
	if rc.attemptTimeout != nil {
		attempt = func(ctx context.Context) error {
			return rc.attemptTimeout.Execute(ctx, fn)
		}
	}

	guarded := func(ctx context.Context) error {
		return rc.circuitBreaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
			result, err := rc.retrier.DoWithContext(ctx, attempt)
			if err != nil {
				return fmt.Errorf("failed after %d attempts: %w", result.Attempts, err)
			}
			return nil
		})
	}

	if rc.bulkhead != nil {
		return rc.bulkhead.Execute(ctx, guarded)
	}
	return guarded(ctx)
}

// CircuitBreaker returns the underlying circuit breaker for monitoring.
func (rc *ResilientClient) CircuitBreaker() *CircuitBreaker {
	return rc.circuitBreaker
}

// Retrier returns the underlying retrier.
func (rc *ResilientClient) Retrier() *Retrier {
	return rc.retrier
}

// RateLimiter returns the underlying rate limiter, nil when not
// configured.
func (rc *ResilientClient) RateLimiter() *TokenBucketLimiter {
	return rc.rateLimiter
}

// Bulkhead returns the underlying bulkhead, nil when not configured.
func (rc *ResilientClient) Bulkhead() *Bulkhead {
	return rc.bulkhead
}
