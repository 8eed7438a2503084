// Package health reports the condition of resilience-guarded dependencies.
//
// The package turns the runtime state of resilience primitives (circuit
// breakers, rate limiters, bulkheads) into health check results, aggregates
// them, and exposes the aggregate via HTTP probe endpoints.
//
// # Core Concepts
//
// A Checker is any component that can report its health. The Status type
// represents the health state: Healthy, Degraded, or Unhealthy.
//
// # Watching Resilience Primitives
//
// BreakerChecker maps circuit state to health: a closed circuit is healthy,
// a half-open circuit is degraded (probing), and an open circuit is
// unhealthy:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
//	agg := health.NewAggregator()
//	agg.Register("billing-api", health.NewBreakerChecker("billing-api", cb))
//
// LimiterChecker and BulkheadChecker report saturation of a token bucket or
// bulkhead, degrading before the primitive starts shedding load.
//
// # Aggregating Checks
//
// Use Aggregator to combine multiple checks into a single composite check:
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
// The package provides handlers for common probe patterns:
//
//	// Liveness probe (for Kubernetes)
//	http.Handle("/healthz", health.LivenessHandler())
//
//	// Readiness probe gated on dependency health
//	http.Handle("/readyz", health.ReadinessHandler(agg))
//
//	// Detailed per-dependency status
//	http.Handle("/health", health.DetailedHandler(agg))
package health
