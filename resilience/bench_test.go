package resilience

import (
	"context"
	"testing"
	"time"
)

// BenchmarkTokenBucketLimiter_Allow measures the hot allow path.
func BenchmarkTokenBucketLimiter_Allow(b *testing.B) {
	rl := NewTokenBucketLimiter(TokenBucketConfig{
		Capacity:   1e9,
		RefillRate: 1e9,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Allow()
	}
}

// BenchmarkTokenBucketLimiter_Concurrent measures contended access.
func BenchmarkTokenBucketLimiter_Concurrent(b *testing.B) {
	rl := NewTokenBucketLimiter(TokenBucketConfig{
		Capacity:   1e9,
		RefillRate: 1e9,
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = rl.Allow()
		}
	})
}

// BenchmarkSlidingWindowLimiter_Allow measures window bookkeeping cost.
func BenchmarkSlidingWindowLimiter_Allow(b *testing.B) {
	rl := NewSlidingWindowLimiter(SlidingWindowConfig{
		WindowSize:  time.Millisecond,
		MaxRequests: 1000,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Allow()
	}
}

// BenchmarkCircuitBreaker_Execute_Closed measures happy path execution.
func BenchmarkCircuitBreaker_Execute_Closed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 100,
		Timeout:          time.Minute,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(func() error { return nil })
	}
}

// BenchmarkCircuitBreaker_Execute_Open measures fail-fast rejection.
func BenchmarkCircuitBreaker_Execute_Open(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Timeout:          time.Hour,
	})
	_ = cb.Execute(failingOp)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(succeedingOp)
	}
}

// BenchmarkCircuitBreaker_Concurrent measures parallel execution.
func BenchmarkCircuitBreaker_Concurrent(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1000,
		Timeout:          time.Minute,
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = cb.Execute(succeedingOp)
		}
	})
}

// BenchmarkRetrier_NoRetries measures retry with immediate success.
func BenchmarkRetrier_NoRetries(b *testing.B) {
	r := NewRetrier(RetryConfig{MaxRetries: 3})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Do(succeedingOp)
	}
}

// BenchmarkRetrier_CalculateBackoff measures backoff math with jitter.
func BenchmarkRetrier_CalculateBackoff(b *testing.B) {
	r := NewRetrier(RetryConfig{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.calculateBackoff(i % 10)
	}
}

// BenchmarkResilientClient_Execute measures the composed happy path.
func BenchmarkResilientClient_Execute(b *testing.B) {
	client := NewResilientClient(ResilientClientConfig{
		RateLimit: &RateLimitConfig{Capacity: 1e9, RefillRate: 1e9},
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.Execute(ctx, func(ctx context.Context) error { return nil })
	}
}

// BenchmarkBulkhead_Execute measures slot accounting overhead.
func BenchmarkBulkhead_Execute(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 100})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = bh.Execute(ctx, func(ctx context.Context) error { return nil })
		}
	})
}
