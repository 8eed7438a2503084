// Package resilience provides composable primitives for calling
// unreliable dependencies: rate limiters, a circuit breaker, a retrier
// with exponential backoff, and a client that composes them.
//
// All primitives operate on in-process state only. There are no
// background goroutines or timers; token refill, window pruning, and
// open-to-half-open recovery are all computed lazily on access.
//
// # Primitives
//
//   - TokenBucketLimiter: bounds the rate of permitted operations while
//     allowing bursts up to the bucket capacity.
//
//   - SlidingWindowLimiter: enforces an exact request ceiling over a
//     trailing time window.
//
//   - CircuitBreaker: tracks consecutive failures and fails fast against
//     a failing dependency, probing periodically for recovery.
//
//   - Retrier: re-invokes a fallible operation with exponential backoff
//     and jitter, subject to a maximum attempt count and cancellation.
//
//   - Bulkhead: limits concurrent operations to prevent resource
//     exhaustion.
//
//   - Timeout: bounds the duration of a single operation.
//
// # Composition
//
// ResilientClient wires limiter, breaker, and retrier in a fixed order:
//
//	client := resilience.NewResilientClient(resilience.ResilientClientConfig{
//	    RateLimit:      &resilience.RateLimitConfig{Capacity: 100, RefillRate: 10},
//	    CircuitBreaker: resilience.CircuitBreakerConfig{FailureThreshold: 5},
//	    Retry:          resilience.RetryConfig{MaxRetries: 3},
//	})
//
//	err := client.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalService(ctx)
//	})
//
// Being rejected is an expected outcome, reported through the sentinel
// errors ErrRateLimited, ErrCircuitOpen, ErrTooManyConcurrent, and
// ErrBulkheadFull, so callers can distinguish shed load from real
// operation failures.
//
// # Sharing
//
// Every primitive is safe for concurrent use and designed to be shared
// by reference across all callers protecting one logical dependency.
// Constructing a new instance per call defeats the accounting entirely.
package resilience
