package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records telemetry for guarded dependency calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed call with duration and error status.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordRejection records a call shed by a resilience layer before
	// reaching the dependency.
	RecordRejection(ctx context.Context, meta CallMeta, reason string)

	// RecordRetry records one retry attempt (zero-indexed).
	RecordRetry(ctx context.Context, meta CallMeta, attempt int)

	// RecordStateChange records a circuit breaker transition.
	RecordStateChange(ctx context.Context, meta CallMeta, from, to string)
}

// Rejection reasons recorded by RecordRejection.
const (
	ReasonRateLimited       = "rate_limited"
	ReasonCircuitOpen       = "circuit_open"
	ReasonHalfOpenSaturated = "half_open_saturated"
	ReasonBulkheadFull      = "bulkhead_full"
)

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	rejectCount  metric.Int64Counter
	retryCount   metric.Int64Counter
	transitions  metric.Int64Counter
	durationHist metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"resilience.call.total",
		metric.WithDescription("Total number of guarded calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"resilience.call.errors",
		metric.WithDescription("Total number of failed guarded calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	rejectCount, err := meter.Int64Counter(
		"resilience.call.rejected",
		metric.WithDescription("Calls shed by a resilience layer, by reason"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"resilience.retry.attempts",
		metric.WithDescription("Retry attempts beyond the initial try"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"resilience.circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"resilience.call.duration_ms",
		metric.WithDescription("Guarded call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		rejectCount:  rejectCount,
		retryCount:   retryCount,
		transitions:  transitions,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) callAttrs(meta CallMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("call.id", meta.CallID()),
		attribute.String("call.target", meta.Target),
	}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("call.operation", meta.Operation))
	}
	return attrs
}

// RecordCall records metrics for a completed guarded call.
func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(m.callAttrs(meta)...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordRejection records a shed call with its rejection reason.
func (m *metricsImpl) RecordRejection(ctx context.Context, meta CallMeta, reason string) {
	attrs := append(m.callAttrs(meta), attribute.String("reject.reason", reason))
	m.rejectCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRetry records one retry attempt.
func (m *metricsImpl) RecordRetry(ctx context.Context, meta CallMeta, attempt int) {
	attrs := append(m.callAttrs(meta), attribute.Int("retry.attempt", attempt))
	m.retryCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStateChange records a circuit breaker transition.
func (m *metricsImpl) RecordStateChange(ctx context.Context, meta CallMeta, from, to string) {
	attrs := append(m.callAttrs(meta),
		attribute.String("circuit.from", from),
		attribute.String("circuit.to", to),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
}
func (m *noopMetrics) RecordRejection(ctx context.Context, meta CallMeta, reason string) {}
func (m *noopMetrics) RecordRetry(ctx context.Context, meta CallMeta, attempt int)       {}
func (m *noopMetrics) RecordStateChange(ctx context.Context, meta CallMeta, from, to string) {
}
