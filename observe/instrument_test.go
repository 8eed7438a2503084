package observe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/steady/resilience"
)

func newTestMiddleware(t *testing.T) (*Middleware, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()

	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	tracer := &tracerImpl{tracer: tp.Tracer("test")}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	return NewMiddleware(tracer, metrics, &noopLogger{}), spanRecorder, reader
}

// TestMiddleware_SuccessPath verifies a successful call records span and metrics.
func TestMiddleware_SuccessPath(t *testing.T) {
	mw, spanRecorder, reader := newTestMiddleware(t)

	meta := CallMeta{Target: "billing-api", Operation: "charge"}
	wrapped := mw.Wrap(meta, func(ctx context.Context) error {
		return nil
	})

	if err := wrapped(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "resilience.call.billing-api.charge" {
		t.Errorf("expected span name 'resilience.call.billing-api.charge', got %q", spans[0].Name())
	}

	rm := collect(t, reader)
	if findMetric(rm, "resilience.call.total") == nil {
		t.Error("resilience.call.total metric not found")
	}
}

// TestMiddleware_ErrorPath verifies a failed call propagates the error unchanged
// and records it.
func TestMiddleware_ErrorPath(t *testing.T) {
	mw, spanRecorder, reader := newTestMiddleware(t)

	opErr := errors.New("connection refused")
	wrapped := mw.Wrap(CallMeta{Target: "redis"}, func(ctx context.Context) error {
		return opErr
	})

	err := wrapped(context.Background())
	if !errors.Is(err, opErr) {
		t.Fatalf("expected original error, got: %v", err)
	}

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	rm := collect(t, reader)
	found := findMetric(rm, "resilience.call.errors")
	if found == nil {
		t.Fatal("resilience.call.errors metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Error("expected errors count 1")
	}
}

// TestMiddleware_RejectionPath verifies shed calls are recorded as rejections,
// not as completed calls.
func TestMiddleware_RejectionPath(t *testing.T) {
	mw, _, reader := newTestMiddleware(t)

	wrapped := mw.Wrap(CallMeta{Target: "redis"}, func(ctx context.Context) error {
		return resilience.ErrCircuitOpen
	})

	err := wrapped(context.Background())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got: %v", err)
	}

	rm := collect(t, reader)

	found := findMetric(rm, "resilience.call.rejected")
	if found == nil {
		t.Fatal("resilience.call.rejected metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Error("expected rejected count 1")
	}

	if total := findMetric(rm, "resilience.call.total"); total != nil {
		if sum, ok := total.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				if dp.Value != 0 {
					t.Errorf("expected call.total 0 for rejected call, got %d", dp.Value)
				}
			}
		}
	}
}

// TestMiddleware_LogsFailure verifies failed calls produce an error log line.
func TestMiddleware_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	mw := NewMiddleware(newNoopTracer(), &noopMetrics{}, NewLoggerWithWriter("info", &buf))

	wrapped := mw.Wrap(CallMeta{Target: "redis"}, func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	_ = wrapped(context.Background())

	output := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("guarded call failed")) {
		t.Errorf("expected failure log line, got: %s", output)
	}
	if !bytes.Contains(buf.Bytes(), []byte("connection refused")) {
		t.Errorf("expected error detail in log, got: %s", output)
	}
}

// TestRejectionReason verifies the sentinel-to-reason mapping.
func TestRejectionReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		reason   string
		rejected bool
	}{
		{"nil", nil, "", false},
		{"rate limited", resilience.ErrRateLimited, ReasonRateLimited, true},
		{"circuit open", resilience.ErrCircuitOpen, ReasonCircuitOpen, true},
		{"half-open saturated", resilience.ErrTooManyConcurrent, ReasonHalfOpenSaturated, true},
		{"bulkhead full", resilience.ErrBulkheadFull, ReasonBulkheadFull, true},
		{"wrapped sentinel", fmt.Errorf("call: %w", resilience.ErrRateLimited), ReasonRateLimited, true},
		{"operation error", errors.New("connection refused"), "", false},
		{"timeout is a failure", resilience.ErrTimeout, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, rejected := RejectionReason(tt.err)
			if reason != tt.reason || rejected != tt.rejected {
				t.Errorf("RejectionReason(%v) = (%q, %v), want (%q, %v)",
					tt.err, reason, rejected, tt.reason, tt.rejected)
			}
		})
	}
}

// TestMiddlewareFromObserver_Nil verifies nil observer is rejected.
func TestMiddlewareFromObserver_Nil(t *testing.T) {
	_, err := MiddlewareFromObserver(nil)
	if !errors.Is(err, ErrNilObserver) {
		t.Errorf("expected ErrNilObserver, got: %v", err)
	}
}

// TestMiddlewareFromObserver_Disabled verifies a no-op observer produces a
// working middleware.
func TestMiddlewareFromObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("failed to create observer: %v", err)
	}

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("failed to create middleware: %v", err)
	}

	wrapped := mw.Wrap(CallMeta{Target: "redis"}, func(ctx context.Context) error {
		return nil
	})
	if err := wrapped(context.Background()); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

// TestHookBreaker_RecordsTransitions verifies circuit transitions reach metrics.
func TestHookBreaker_RecordsTransitions(t *testing.T) {
	mw, _, reader := newTestMiddleware(t)

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		Timeout:          time.Minute,
	})
	mw.HookBreaker(CallMeta{Target: "redis"}, cb)

	_ = cb.Execute(func() error { return errors.New("boom") })

	rm := collect(t, reader)

	found := findMetric(rm, "resilience.circuit.transitions")
	if found == nil {
		t.Fatal("resilience.circuit.transitions metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("no transition data points")
	}
}

// TestRetryObserver_RecordsAttempts verifies the retry callback counts attempts.
func TestRetryObserver_RecordsAttempts(t *testing.T) {
	mw, _, reader := newTestMiddleware(t)

	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		OnRetry:        mw.RetryObserver(CallMeta{Target: "redis"}),
	})

	_, _ = retrier.Do(func() error {
		return errors.New("boom")
	})

	rm := collect(t, reader)

	found := findMetric(rm, "resilience.retry.attempts")
	if found == nil {
		t.Fatal("resilience.retry.attempts metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("expected 2 recorded retries, got %d", total)
	}
}
