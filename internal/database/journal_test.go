package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/engine"
)

func TestJournalMemoryOnlyRoundTrip(t *testing.T) {
	j := NewRedisJournal(nil, zerolog.Nop())
	ctx := context.Background()

	u := engine.PendingUpdate{
		TradeID:   "t-1",
		Symbol:    "SOL/USDC",
		Side:      engine.SideBuy,
		Size:      5,
		Price:     100,
		AppliedAt: time.Now(),
	}
	if err := j.Save(ctx, u); err != nil {
		t.Fatalf("Save: %v", err)
	}

	updates, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	if updates[0].TradeID != "t-1" || updates[0].Size != 5 {
		t.Errorf("loaded %+v, want saved update", updates[0])
	}
}

func TestJournalRemoveClearsEntry(t *testing.T) {
	j := NewRedisJournal(nil, zerolog.Nop())
	ctx := context.Background()

	for _, id := range []string{"t-1", "t-2"} {
		if err := j.Save(ctx, engine.PendingUpdate{TradeID: id, Symbol: "SOL/USDC", Side: engine.SideBuy, Size: 1, Price: 100}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	if err := j.Remove(ctx, "t-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	updates, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	if updates[0].TradeID != "t-2" {
		t.Errorf("remaining trade = %s, want t-2", updates[0].TradeID)
	}
}

func TestJournalRemoveUnknownIDIsNoOp(t *testing.T) {
	j := NewRedisJournal(nil, zerolog.Nop())
	if err := j.Remove(context.Background(), "missing"); err != nil {
		t.Errorf("Remove unknown id: %v", err)
	}
}
