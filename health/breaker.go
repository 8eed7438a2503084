package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/steady/resilience"
)

// BreakerChecker reports the health of a dependency guarded by a circuit
// breaker. A closed circuit is healthy, a half-open circuit is degraded
// (recovery is being probed), and an open circuit is unhealthy.
type BreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker that watches the given circuit breaker.
func NewBreakerChecker(name string, cb *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: cb}
}

// Name returns the name of this checker.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check maps the current circuit state to a health result.
func (c *BreakerChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	m := c.breaker.Metrics()

	details := map[string]any{
		"state":     m.State.String(),
		"failures":  m.Failures,
		"successes": m.Successes,
	}
	if !m.LastFailure.IsZero() {
		details["last_failure"] = m.LastFailure.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	switch m.State {
	case resilience.StateClosed:
		return Healthy("circuit closed").WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, probing recovery").WithDetails(details)
	default:
		return Unhealthy(
			fmt.Sprintf("circuit open after %d failures", m.Failures),
			resilience.ErrCircuitOpen,
		).WithDetails(details)
	}
}

// LimiterCheckerConfig configures saturation thresholds for LimiterChecker.
type LimiterCheckerConfig struct {
	// DegradedBelow is the token fill ratio under which the limiter is
	// reported degraded. Values outside (0, 1) default to 0.2.
	DegradedBelow float64

	// UnhealthyBelow is the token fill ratio under which the limiter is
	// reported unhealthy. Values outside (0, 1) default to 0.05.
	UnhealthyBelow float64
}

// LimiterChecker reports the saturation of a token bucket. A nearly empty
// bucket means callers are about to be shed, which surfaces as degraded or
// unhealthy before the first rejection.
type LimiterChecker struct {
	name    string
	limiter *resilience.TokenBucketLimiter
	config  LimiterCheckerConfig
}

// NewLimiterChecker creates a checker that watches the given token bucket.
func NewLimiterChecker(name string, limiter *resilience.TokenBucketLimiter, config ...LimiterCheckerConfig) *LimiterChecker {
	cfg := LimiterCheckerConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.DegradedBelow <= 0 || cfg.DegradedBelow >= 1 {
		cfg.DegradedBelow = 0.2
	}
	if cfg.UnhealthyBelow <= 0 || cfg.UnhealthyBelow >= 1 {
		cfg.UnhealthyBelow = 0.05
	}
	if cfg.UnhealthyBelow > cfg.DegradedBelow {
		cfg.UnhealthyBelow = cfg.DegradedBelow
	}

	return &LimiterChecker{name: name, limiter: limiter, config: cfg}
}

// Name returns the name of this checker.
func (c *LimiterChecker) Name() string {
	return c.name
}

// Check reports the current token fill ratio against the thresholds.
func (c *LimiterChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	tokens := c.limiter.Tokens()
	capacity := c.limiter.Capacity()

	ratio := 1.0
	if capacity > 0 {
		ratio = tokens / capacity
	}

	details := map[string]any{
		"tokens":       tokens,
		"capacity":     capacity,
		"fill_percent": ratio * 100,
	}

	switch {
	case ratio < c.config.UnhealthyBelow:
		return Unhealthy(
			fmt.Sprintf("rate limiter exhausted: %.1f%% tokens remaining", ratio*100),
			resilience.ErrRateLimited,
		).WithDetails(details)
	case ratio < c.config.DegradedBelow:
		return Degraded(
			fmt.Sprintf("rate limiter near capacity: %.1f%% tokens remaining", ratio*100),
		).WithDetails(details)
	default:
		return Healthy(
			fmt.Sprintf("rate limiter normal: %.1f%% tokens remaining", ratio*100),
		).WithDetails(details)
	}
}

// BulkheadChecker reports the saturation of a bulkhead's concurrency slots.
type BulkheadChecker struct {
	name     string
	bulkhead *resilience.Bulkhead

	// DegradedAt is the active-slot ratio at which the bulkhead is
	// reported degraded. Defaults to 0.8.
	DegradedAt float64
}

// NewBulkheadChecker creates a checker that watches the given bulkhead.
func NewBulkheadChecker(name string, b *resilience.Bulkhead) *BulkheadChecker {
	return &BulkheadChecker{name: name, bulkhead: b, DegradedAt: 0.8}
}

// Name returns the name of this checker.
func (c *BulkheadChecker) Name() string {
	return c.name
}

// Check reports the active slot usage. A full bulkhead is unhealthy since
// new callers are being rejected.
func (c *BulkheadChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	m := c.bulkhead.Metrics()
	capacity := c.bulkhead.Capacity()

	details := map[string]any{
		"active":   m.Active,
		"capacity": capacity,
		"rejected": m.Rejected,
	}

	ratio := 0.0
	if capacity > 0 {
		ratio = float64(m.Active) / float64(capacity)
	}

	switch {
	case ratio >= 1.0:
		return Unhealthy(
			fmt.Sprintf("bulkhead full: %d/%d slots in use", m.Active, capacity),
			resilience.ErrBulkheadFull,
		).WithDetails(details)
	case ratio >= c.DegradedAt:
		return Degraded(
			fmt.Sprintf("bulkhead near capacity: %d/%d slots in use", m.Active, capacity),
		).WithDetails(details)
	default:
		return Healthy(
			fmt.Sprintf("bulkhead normal: %d/%d slots in use", m.Active, capacity),
		).WithDetails(details)
	}
}
