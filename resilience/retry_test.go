package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetrier_Defaults(t *testing.T) {
	r := NewRetrier(RetryConfig{})

	cfg := r.Config()
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.InitialBackoff != 100*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 100ms", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", cfg.MaxBackoff)
	}
	if cfg.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %f, want 2.0", cfg.BackoffMultiplier)
	}
	if cfg.JitterFraction != 0.2 {
		t.Errorf("JitterFraction = %f, want 0.2", cfg.JitterFraction)
	}
}

func TestRetrier_SuccessOnFirstAttempt(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 3})

	calls := 0
	result, err := r.Do(func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Do() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if result.LastError != nil {
		t.Errorf("LastError = %v, want nil", result.LastError)
	}
}

func TestRetrier_SuccessAfterRetries(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		JitterFraction: 0.01,
	})

	calls := 0
	result, err := r.Do(func() error {
		calls++
		if calls < 3 {
			return errTest
		}
		return nil
	})

	if err != nil {
		t.Errorf("Do() error = %v, want nil", err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if result.LastError != nil {
		t.Errorf("LastError = %v, want nil", result.LastError)
	}
}

func TestRetrier_ExhaustsRetries(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		JitterFraction: 0.01,
	})

	calls := 0
	result, err := r.Do(func() error {
		calls++
		return errTest
	})

	if err != errTest {
		t.Errorf("Do() error = %v, want %v", err, errTest)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", calls)
	}
	if result.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", result.Attempts)
	}
	if result.LastError != errTest {
		t.Errorf("LastError = %v, want %v", result.LastError, errTest)
	}
	if result.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", result.Duration)
	}
}

func TestRetrier_ZeroRetriesTriesOnce(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: -1})

	calls := 0
	result, _ := r.Do(func() error {
		calls++
		return errTest
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestRetrier_ContextCancelledDuringBackoff(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxRetries:     5,
		InitialBackoff: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result, err := r.DoWithContext(ctx, func(ctx context.Context) error {
		calls++
		return errTest
	})

	// Cancellation surfaces the context's error, not the last operation
	// error
	if err != context.Canceled {
		t.Errorf("DoWithContext() error = %v, want context.Canceled", err)
	}
	if result.LastError != context.Canceled {
		t.Errorf("LastError = %v, want context.Canceled", result.LastError)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no attempts after cancellation)", calls)
	}
}

func TestRetrier_CustomIsRetryable(t *testing.T) {
	permanent := errors.New("permanent failure")

	r := NewRetrier(RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		IsRetryable: func(err error) bool {
			return !errors.Is(err, permanent)
		},
	})

	calls := 0
	result, err := r.Do(func() error {
		calls++
		return permanent
	})

	if err != permanent {
		t.Errorf("Do() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (non-retryable stops immediately)", calls)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestRetrier_RetryableErrorsList(t *testing.T) {
	transient := errors.New("transient")
	fatal := errors.New("fatal")

	r := NewRetrier(RetryConfig{
		MaxRetries:      2,
		InitialBackoff:  time.Millisecond,
		RetryableErrors: []error{transient},
	})

	// Listed errors are retried, wrapping included
	calls := 0
	_, _ = r.Do(func() error {
		calls++
		return errors.Join(errors.New("op failed"), transient)
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3 for listed error", calls)
	}

	// Unlisted errors are not
	calls = 0
	_, _ = r.Do(func() error {
		calls++
		return fatal
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for unlisted error", calls)
	}
}

func TestRetrier_PredicateTakesPrecedence(t *testing.T) {
	listed := errors.New("listed")

	// Predicate says no even though the error is listed
	r := NewRetrier(RetryConfig{
		MaxRetries:      3,
		InitialBackoff:  time.Millisecond,
		RetryableErrors: []error{listed},
		IsRetryable:     func(error) bool { return false },
	})

	calls := 0
	_, _ = r.Do(func() error {
		calls++
		return listed
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (predicate overrides list)", calls)
	}
}

func TestRetrier_BackoffBounds(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxRetries:        10,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.2,
	})

	// delay = min(initial * multiplier^attempt, max), jitter adds at
	// most delay * jitterFraction
	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second}, // capped
		{9, time.Second}, // still capped
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			got := r.calculateBackoff(tt.attempt)
			max := tt.base + time.Duration(float64(tt.base)*0.2)
			if got < tt.base || got > max {
				t.Errorf("calculateBackoff(%d) = %v, want in [%v, %v]",
					tt.attempt, got, tt.base, max)
			}
		}
	}
}

func TestRetrier_OnRetry(t *testing.T) {
	var attempts []int

	r := NewRetrier(RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
			if err != errTest {
				t.Errorf("OnRetry err = %v, want %v", err, errTest)
			}
			if delay <= 0 {
				t.Errorf("OnRetry delay = %v, want > 0", delay)
			}
		},
	})

	_, _ = r.Do(func() error { return errTest })

	if len(attempts) != 2 {
		t.Fatalf("OnRetry called %d times, want 2", len(attempts))
	}
	if attempts[0] != 0 || attempts[1] != 1 {
		t.Errorf("OnRetry attempts = %v, want [0 1]", attempts)
	}
}
