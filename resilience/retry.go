package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retries after the initial
	// attempt (0 = try once, never retry). Default: 3
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	// Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries, before jitter.
	// Default: 30s
	MaxBackoff time.Duration

	// BackoffMultiplier grows the delay geometrically.
	// Default: 2.0
	BackoffMultiplier float64

	// JitterFraction adds up to this fraction of random extra delay to
	// spread out retries across concurrent callers (0.0-1.0).
	// Default: 0.2
	JitterFraction float64

	// RetryableErrors restricts retries to errors matching one of these
	// via errors.Is. Ignored when IsRetryable is set. If both are unset,
	// all errors are retryable.
	RetryableErrors []error

	// IsRetryable decides whether an error should trigger a retry.
	// Takes precedence over RetryableErrors.
	IsRetryable func(error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// RetryResult describes how a retried operation went.
type RetryResult struct {
	// Attempts is the total attempts made, including the initial one.
	Attempts int

	// Duration is the total wall-clock time spent, sleeps included.
	Duration time.Duration

	// LastError is the last error encountered, nil on success.
	LastError error
}

// Retrier re-invokes a fallible operation with exponential backoff and
// jitter. The delay before retry a (zero-indexed) is
//
//	delay = min(initialBackoff * multiplier^a, maxBackoff)
//	delay += delay * jitterFraction * random(0,1)
//
// A single Retrier is safe for concurrent use and is meant to be shared
// by all callers retrying against one dependency.
type Retrier struct {
	config RetryConfig
}

// NewRetrier creates a retrier, applying defaults for zero or invalid
// configuration values.
func NewRetrier(config RetryConfig) *Retrier {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.JitterFraction < 0 || config.JitterFraction > 1 {
		config.JitterFraction = 0.2
	}

	return &Retrier{config: config}
}

// Do executes the operation with retry logic, returning the outcome of
// the last attempt along with attempt accounting.
func (r *Retrier) Do(fn func() error) (RetryResult, error) {
	return r.DoWithContext(context.Background(), func(context.Context) error {
		return fn()
	})
}

// DoWithContext executes the operation with retry logic and context
// support. Cancellation during a backoff sleep aborts further attempts
// and surfaces the context's error, not the operation's last error.
// RetryResult reports the true attempt count and elapsed time regardless
// of outcome.
func (r *Retrier) DoWithContext(ctx context.Context, fn func(context.Context) error) (RetryResult, error) {
	start := time.Now()
	result := RetryResult{}

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err := fn(ctx)
		if err == nil {
			result.Duration = time.Since(start)
			return result, nil
		}

		result.LastError = err

		if attempt >= r.config.MaxRetries {
			break
		}
		if !r.isRetryable(err) {
			break
		}

		backoff := r.calculateBackoff(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, backoff)
		}

		select {
		case <-ctx.Done():
			result.Duration = time.Since(start)
			result.LastError = ctx.Err()
			return result, ctx.Err()
		case <-time.After(backoff):
			// Next attempt
		}
	}

	result.Duration = time.Since(start)
	return result, result.LastError
}

// isRetryable applies the three-tier retryability decision: the custom
// predicate wins, then the configured error set, then retry everything.
func (r *Retrier) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if r.config.IsRetryable != nil {
		return r.config.IsRetryable(err)
	}

	if len(r.config.RetryableErrors) > 0 {
		for _, retryable := range r.config.RetryableErrors {
			if errors.Is(err, retryable) {
				return true
			}
		}
		return false
	}

	return true
}

// calculateBackoff computes the delay before retry attempt (zero-indexed),
// capped at MaxBackoff before jitter is added.
func (r *Retrier) calculateBackoff(attempt int) time.Duration {
	backoff := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffMultiplier, float64(attempt))

	if backoff > float64(r.config.MaxBackoff) {
		backoff = float64(r.config.MaxBackoff)
	}

	if r.config.JitterFraction > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		backoff += backoff * r.config.JitterFraction * rand.Float64()
	}

	return time.Duration(backoff)
}

// Config returns the retrier configuration after defaulting.
func (r *Retrier) Config() RetryConfig {
	return r.config
}
