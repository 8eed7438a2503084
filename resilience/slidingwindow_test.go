package resilience

import (
	"sync"
	"testing"
	"time"
)

func TestNewSlidingWindowLimiter_Defaults(t *testing.T) {
	rl := NewSlidingWindowLimiter(SlidingWindowConfig{})

	if rl.windowSize != time.Second {
		t.Errorf("windowSize = %v, want 1s", rl.windowSize)
	}
	if rl.maxRequests != 1 {
		t.Errorf("maxRequests = %d, want 1", rl.maxRequests)
	}
}

func TestSlidingWindowLimiter_Allow(t *testing.T) {
	rl := NewSlidingWindowLimiter(SlidingWindowConfig{
		WindowSize:  time.Second,
		MaxRequests: 3,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Errorf("Allow() = false on call %d, want true", i)
		}
	}

	if rl.Allow() {
		t.Error("Allow() = true with full window, want false")
	}
	if got := rl.RequestsInWindow(); got != 3 {
		t.Errorf("RequestsInWindow() = %d, want 3", got)
	}
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	rl := NewSlidingWindowLimiter(SlidingWindowConfig{
		WindowSize:  50 * time.Millisecond,
		MaxRequests: 3,
	})

	for i := 0; i < 3; i++ {
		rl.Allow()
	}
	if rl.Allow() {
		t.Error("Allow() = true with full window, want false")
	}

	// Old entries expire once the window has passed
	time.Sleep(60 * time.Millisecond)

	if !rl.Allow() {
		t.Error("Allow() = false after window slid, want true")
	}
	if got := rl.RequestsInWindow(); got != 1 {
		t.Errorf("RequestsInWindow() = %d, want 1", got)
	}
}

func TestSlidingWindowLimiter_NeverExceedsMax(t *testing.T) {
	rl := NewSlidingWindowLimiter(SlidingWindowConfig{
		WindowSize:  100 * time.Millisecond,
		MaxRequests: 5,
	})

	for i := 0; i < 50; i++ {
		rl.Allow()
		if got := rl.RequestsInWindow(); got > 5 {
			t.Fatalf("RequestsInWindow() = %d, want <= 5", got)
		}
	}
}

func TestSlidingWindowLimiter_Reset(t *testing.T) {
	rl := NewSlidingWindowLimiter(SlidingWindowConfig{
		WindowSize:  time.Second,
		MaxRequests: 2,
	})
	rl.Allow()
	rl.Allow()

	rl.Reset()

	if got := rl.RequestsInWindow(); got != 0 {
		t.Errorf("RequestsInWindow() = %d after Reset, want 0", got)
	}
	if !rl.Allow() {
		t.Error("Allow() = false after Reset, want true")
	}
}

func TestSlidingWindowLimiter_Concurrent(t *testing.T) {
	rl := NewSlidingWindowLimiter(SlidingWindowConfig{
		WindowSize:  time.Second,
		MaxRequests: 10,
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if rl.Allow() {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("allowed = %d, want 10", allowed)
	}
}

func TestLimiterInterface(t *testing.T) {
	// Both variants satisfy Limiter
	var _ Limiter = NewTokenBucketLimiter(TokenBucketConfig{})
	var _ Limiter = NewSlidingWindowLimiter(SlidingWindowConfig{})
}
