package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHubRunStopsOnContextCancel(t *testing.T) {
	bus := NewBus()
	hub := NewHub(bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	hub.BroadcastEvent(Event{Type: EventBotStarted})

	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after context cancellation")
	}

	if n := hub.ClientCount(); n != 0 {
		t.Fatalf("expected 0 clients after shutdown, got %d", n)
	}
}
