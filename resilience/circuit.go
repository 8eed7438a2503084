package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the service recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before
	// opening the circuit. Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes in
	// half-open state required to close the circuit. Default: 2
	SuccessThreshold int

	// Timeout is how long the circuit stays open before the next request
	// is allowed to probe for recovery. Default: 30 seconds
	Timeout time.Duration

	// MaxConcurrentHalfOpen is the max concurrent probe requests allowed
	// in half-open state. Default: 1
	MaxConcurrentHalfOpen int

	// OnStateChange is called synchronously on every transition.
	// It runs on the caller's goroutine and must not block for long.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool
}

// CircuitBreaker implements the circuit breaker pattern.
//
// The breaker starts closed. FailureThreshold consecutive failures open
// it; while open every call is rejected with ErrCircuitOpen without
// invoking the operation. Once Timeout has elapsed since the last
// failure, the next request moves the breaker to half-open, where up to
// MaxConcurrentHalfOpen probes are admitted. SuccessThreshold consecutive
// probe successes close the circuit; any probe failure reopens it.
//
// A single instance is meant to be shared by all callers protecting one
// dependency; all state is guarded by one mutex.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	lastFailureTime time.Time
	halfOpenCount   int
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxConcurrentHalfOpen <= 0 {
		config.MaxConcurrentHalfOpen = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker. The operation
// is not invoked when the breaker rejects the call; its error is
// propagated unchanged otherwise.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteWithContext(context.Background(), func(context.Context) error {
		return fn()
	})
}

// ExecuteWithContext runs the operation with context support. The context
// is passed through to the operation; cancellation errors are recorded as
// failures like any other.
func (cb *CircuitBreaker) ExecuteWithContext(ctx context.Context, fn func(context.Context) error) error {
	probe, err := cb.beforeRequest()
	if err != nil {
		return err
	}
	// The probe slot must be released exactly once per admitted request,
	// even if fn panics.
	defer cb.releaseProbe(probe)

	err = fn(ctx)
	cb.afterRequest(err)
	return err
}

// beforeRequest decides whether the call may proceed. It returns
// probe=true when the call was admitted as a half-open probe and holds a
// probe slot that must be released.
func (cb *CircuitBreaker) beforeRequest() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// An open circuit moves to half-open on the first request after the
	// timeout; recovery is probed lazily, never by a background timer.
	if cb.state == StateOpen && time.Since(cb.lastFailureTime) >= cb.config.Timeout {
		cb.setStateLocked(StateHalfOpen)
	}

	switch cb.state {
	case StateOpen:
		return false, ErrCircuitOpen

	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.MaxConcurrentHalfOpen {
			return false, ErrTooManyConcurrent
		}
		cb.halfOpenCount++
		return true, nil
	}

	return false, nil
}

// afterRequest records the outcome of an admitted call.
func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.config.IsFailure(err) {
		cb.recordFailureLocked()
	} else {
		cb.recordSuccessLocked()
	}
}

func (cb *CircuitBreaker) recordFailureLocked() {
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.setStateLocked(StateOpen)
		}

	case StateHalfOpen:
		// A failed probe reopens the circuit. The failure counter is set
		// to the threshold so the breaker is re-armed: a later close
		// requires due failures before it can open again.
		cb.failures = cb.config.FailureThreshold
		cb.setStateLocked(StateOpen)
	}
}

func (cb *CircuitBreaker) recordSuccessLocked() {
	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.setStateLocked(StateClosed)
			cb.failures = 0
			cb.successes = 0
		}
	}
}

// releaseProbe returns a half-open probe slot. Safe to call after the
// breaker has already left half-open; the count never goes negative.
func (cb *CircuitBreaker) releaseProbe(probe bool) {
	if !probe {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.halfOpenCount > 0 {
		cb.halfOpenCount--
	}
}

// setStateLocked transitions to the given state and notifies the observer.
// Must be called with the mutex held.
func (cb *CircuitBreaker) setStateLocked(state State) {
	if cb.state == state {
		return
	}

	from := cb.state
	cb.state = state

	switch state {
	case StateHalfOpen:
		cb.successes = 0
		cb.halfOpenCount = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, state)
	}
}

// State returns the current circuit state without side effects. A breaker
// whose open timeout has elapsed still reports open until the next
// request probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// OnStateChange registers an observer invoked synchronously on every
// transition. Replaces any previously registered observer.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.config.OnStateChange = fn
}

// Reset forces the breaker to closed with zeroed counters. Administrative
// escape hatch; use with caution.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCount = 0

	if from != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, StateClosed)
	}
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:       cb.state,
		Failures:    cb.failures,
		Successes:   cb.successes,
		LastFailure: cb.lastFailureTime,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Failures    int
	Successes   int
	LastFailure time.Time
}
