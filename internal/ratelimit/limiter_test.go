package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAcquireUnderLimitIsImmediate(t *testing.T) {
	l := New("venue", Config{MaxRequests: 5, Window: time.Minute}, zerolog.Nop())

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("acquires under limit took %v, expected immediate", elapsed)
	}

	count, max, _ := l.Usage()
	if count != 5 || max != 5 {
		t.Errorf("usage = %d/%d, want 5/5", count, max)
	}
}

func TestAcquireSuspendsUntilWindowRollsOver(t *testing.T) {
	window := 50 * time.Millisecond
	l := New("venue", Config{MaxRequests: 2, Window: window}, zerolog.Nop())

	l.Acquire(context.Background())
	l.Acquire(context.Background())

	start := time.Now()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("blocked acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("third acquire returned after %v, expected to wait for window", elapsed)
	}
}

func TestWindowResetClearsCount(t *testing.T) {
	l := New("venue", Config{MaxRequests: 2, Window: 20 * time.Millisecond}, zerolog.Nop())

	l.Acquire(context.Background())
	l.Acquire(context.Background())
	time.Sleep(30 * time.Millisecond)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after window reset: %v", err)
	}
	count, _, _ := l.Usage()
	if count != 1 {
		t.Errorf("count after reset = %d, want 1", count)
	}
}

func TestAcquireCancelable(t *testing.T) {
	l := New("venue", Config{MaxRequests: 1, Window: time.Hour}, zerolog.Nop())
	l.Acquire(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Acquire(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("acquire should fail when context is canceled while waiting")
		}
	case <-time.After(time.Second):
		t.Fatal("acquire did not return after cancellation")
	}
}

func TestRegistryReusesLimiterPerUpstream(t *testing.T) {
	r := NewRegistry(Config{MaxRequests: 10, Window: time.Minute}, zerolog.Nop())

	a := r.Get("oracle")
	b := r.Get("oracle")
	if a != b {
		t.Error("registry should return the same limiter for the same upstream")
	}
	if c := r.Get("venue"); c == a {
		t.Error("different upstreams should get different limiters")
	}
}

func TestRegistryConfigureOverridesDefaults(t *testing.T) {
	r := NewRegistry(Config{MaxRequests: 10, Window: time.Minute}, zerolog.Nop())
	r.Configure("venue", Config{MaxRequests: 1, Window: time.Hour})

	l := r.Get("venue")
	l.Acquire(context.Background())
	_, max, _ := l.Usage()
	if max != 1 {
		t.Errorf("configured max = %d, want 1", max)
	}
}
