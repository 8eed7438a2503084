package observe

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/steady/resilience"
)

// Operation is the signature for guarded dependency calls.
// This is the function shape the resilience primitives execute.
type Operation func(ctx context.Context) error

// Middleware wraps guarded calls with observability (tracing, metrics,
// logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe Operation.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped operation are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability
// components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an Operation with tracing, metrics, and logging. Rejections
// by a resilience layer are recorded under their reason; other errors
// count as call failures.
func (m *Middleware) Wrap(meta CallMeta, op Operation) Operation {
	return func(ctx context.Context) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		err := op(ctx)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)

		if reason, rejected := RejectionReason(err); rejected {
			m.metrics.RecordRejection(ctx, meta, reason)
		} else {
			m.metrics.RecordCall(ctx, meta, duration, err)
		}

		callLogger := m.logger.WithCall(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			callLogger.Error(ctx, "guarded call failed", fields...)
		} else {
			callLogger.Info(ctx, "guarded call completed", fields...)
		}

		return err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}

// RejectionReason maps a resilience sentinel error to its rejection
// reason label. The second return is false for nil errors and for real
// operation failures.
func RejectionReason(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, resilience.ErrRateLimited):
		return ReasonRateLimited, true
	case errors.Is(err, resilience.ErrCircuitOpen):
		return ReasonCircuitOpen, true
	case errors.Is(err, resilience.ErrTooManyConcurrent):
		return ReasonHalfOpenSaturated, true
	case errors.Is(err, resilience.ErrBulkheadFull):
		return ReasonBulkheadFull, true
	default:
		return "", false
	}
}

// HookBreaker registers a transition observer on the breaker that records
// circuit state changes as metrics and log lines. Replaces any observer
// previously registered on the breaker.
func (m *Middleware) HookBreaker(meta CallMeta, cb *resilience.CircuitBreaker) {
	logger := m.logger.WithCall(meta)

	cb.OnStateChange(func(from, to resilience.State) {
		ctx := context.Background()
		m.metrics.RecordStateChange(ctx, meta, from.String(), to.String())
		logger.Warn(ctx, "circuit state changed",
			Field{Key: "circuit.from", Value: from.String()},
			Field{Key: "circuit.to", Value: to.String()},
		)
	})
}

// RetryObserver returns a callback suitable for RetryConfig.OnRetry that
// records each retry attempt.
func (m *Middleware) RetryObserver(meta CallMeta) func(attempt int, err error, delay time.Duration) {
	logger := m.logger.WithCall(meta)

	return func(attempt int, err error, delay time.Duration) {
		ctx := context.Background()
		m.metrics.RecordRetry(ctx, meta, attempt)
		logger.Debug(ctx, "retrying guarded call",
			Field{Key: "retry.attempt", Value: attempt},
			Field{Key: "retry.delay_ms", Value: float64(delay.Milliseconds())},
			Field{Key: "error", Value: err.Error()},
		)
	}
}
