package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/errs"
)

var errUpstream = errors.New("upstream down")

func newTestBreaker(failureThreshold, successThreshold int, timeout time.Duration) *Breaker {
	return New("test", Config{
		FailureThreshold: failureThreshold,
		SuccessThreshold: successThreshold,
		Timeout:          timeout,
	}, zerolog.Nop())
}

func failOp(ctx context.Context) error    { return errUpstream }
func succeedOp(ctx context.Context) error { return nil }

func TestOpensAfterFailureThreshold(t *testing.T) {
	b := newTestBreaker(3, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Call(ctx, failOp); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: got %v, want upstream error", i, err)
		}
		if b.State() != StateClosed {
			t.Fatalf("call %d: breaker opened early", i)
		}
	}

	b.Call(ctx, failOp)
	if b.State() != StateOpen {
		t.Fatalf("state = %s after %d failures, want open", b.State(), 3)
	}
}

func TestOpenFailsFastWithoutInvoking(t *testing.T) {
	b := newTestBreaker(1, 1, time.Minute)
	ctx := context.Background()
	b.Call(ctx, failOp)

	invoked := false
	err := b.Call(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if invoked {
		t.Error("operation invoked while breaker open")
	}
	if !errs.Retryable(err) {
		t.Errorf("breaker-open error should be retryable, got %v", err)
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	b := newTestBreaker(3, 2, 20*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b.Call(ctx, failOp)
	}
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(30 * time.Millisecond)

	// First probe moves open -> half-open and succeeds.
	if err := b.Call(ctx, succeedOp); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s after first probe success, want half_open", b.State())
	}

	if err := b.Call(ctx, succeedOp); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s after success threshold, want closed", b.State())
	}

	// Counters reset: it takes a full threshold of failures to reopen.
	b.Call(ctx, failOp)
	b.Call(ctx, failOp)
	if b.State() != StateClosed {
		t.Error("failure counter was not reset on close")
	}
}

func TestFailureInHalfOpenReopens(t *testing.T) {
	b := newTestBreaker(2, 2, 10*time.Millisecond)
	ctx := context.Background()

	b.Call(ctx, failOp)
	b.Call(ctx, failOp)
	time.Sleep(20 * time.Millisecond)

	b.Call(ctx, failOp) // probe fails
	if b.State() != StateOpen {
		t.Fatalf("state = %s after failed probe, want open", b.State())
	}
}

func TestSuccessResetsFailureCountWhileClosed(t *testing.T) {
	b := newTestBreaker(3, 1, time.Minute)
	ctx := context.Background()

	b.Call(ctx, failOp)
	b.Call(ctx, failOp)
	b.Call(ctx, succeedOp)
	b.Call(ctx, failOp)
	b.Call(ctx, failOp)

	if b.State() != StateClosed {
		t.Error("success should reset the consecutive failure counter")
	}
}

func TestOnHalfOpenCallback(t *testing.T) {
	b := newTestBreaker(1, 2, 5*time.Millisecond)
	halfOpened := make(chan string, 1)
	b.OnHalfOpen(func(name string) { halfOpened <- name })

	ctx := context.Background()
	b.Call(ctx, failOp)
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	time.Sleep(10 * time.Millisecond)
	b.Call(ctx, succeedOp)

	select {
	case name := <-halfOpened:
		if name != "test" {
			t.Errorf("half-open callback got %q, want %q", name, "test")
		}
	case <-time.After(time.Second):
		t.Fatal("half-open callback not invoked")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %s after one probe success, want half_open", b.State())
	}
}

func TestOnTripCallback(t *testing.T) {
	b := newTestBreaker(1, 1, time.Minute)
	tripped := make(chan string, 1)
	b.OnTrip(func(name string) { tripped <- name })

	b.Call(context.Background(), failOp)

	select {
	case name := <-tripped:
		if name != "test" {
			t.Errorf("trip callback got %q, want %q", name, "test")
		}
	case <-time.After(time.Second):
		t.Fatal("trip callback not invoked")
	}
}
