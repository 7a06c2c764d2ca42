package risk

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestManager() *Manager {
	return NewManager(Config{
		InitialCapital:      10000,
		MaxDrawdown:         0.10,
		MaxPositionFraction: 0.10,
		MinConfidence:       0.5,
	}, zerolog.Nop())
}

func TestValidateTrade(t *testing.T) {
	cases := []struct {
		name       string
		size       float64
		price      float64
		confidence float64
		want       bool
	}{
		{"valid_trade", 10, 100, 0.8, true},
		{"at_position_cap", 10, 100, 0.9, true},
		{"over_position_cap", 11, 100, 0.9, false},
		{"low_confidence", 5, 100, 0.4, false},
		{"zero_size", 0, 100, 0.8, false},
		{"zero_price", 10, 0, 0.8, false},
		{"over_capital", 200, 100, 0.9, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager()
			ok, reason := m.ValidateTrade("SOL/USD", tc.size, tc.price, tc.confidence)
			if ok != tc.want {
				t.Errorf("ValidateTrade(size=%v price=%v conf=%v) = %v (%s), want %v",
					tc.size, tc.price, tc.confidence, ok, reason, tc.want)
			}
		})
	}
}

func TestDrawdownGate(t *testing.T) {
	m := newTestManager()
	// Capital falls to 9500; peak stays 10000. Max drawdown 0.1 means
	// capital must not risk dropping below 9000.
	m.RecordTrade(Trade{ID: "l1", Symbol: "SOL/USD", Side: "sell", Size: 1, Price: 100, PnL: -500, Timestamp: time.Now()})

	if got := m.Drawdown(); math.Abs(got-0.05) > 1e-9 {
		t.Fatalf("drawdown = %v, want 0.05", got)
	}

	// Notional 400 risks capital 9100: allowed.
	if ok, reason := m.ValidateTrade("SOL/USD", 4, 100, 0.9); !ok {
		t.Errorf("trade within drawdown budget rejected: %s", reason)
	}
	// Notional 600 risks capital 8900, below the 9000 floor: rejected.
	if ok, _ := m.ValidateTrade("SOL/USD", 6, 100, 0.9); ok {
		t.Error("trade that risks breaching max drawdown should be rejected")
	}
}

func TestSizePositionBound(t *testing.T) {
	m := newTestManager()
	price := 100.0

	for _, confidence := range []float64{0, 0.1, 0.5, 0.8, 1.0, 1.5} {
		size := m.SizePosition(confidence, price)
		notional := size * price
		if notional > m.Capital()*0.10+1e-9 {
			t.Errorf("confidence %v: notional %v exceeds 10%% of capital", confidence, notional)
		}
		if size < 0 {
			t.Errorf("confidence %v: negative size %v", confidence, size)
		}
	}

	// confidence 0.8 with capital 10000 and 10% cap: 800 notional -> 8 units.
	if size := m.SizePosition(0.8, price); math.Abs(size-8) > 1e-9 {
		t.Errorf("SizePosition(0.8, 100) = %v, want 8", size)
	}
}

func TestPeakCapitalRatchets(t *testing.T) {
	m := newTestManager()

	m.RecordTrade(Trade{ID: "w", Side: "sell", Symbol: "SOL/USD", Size: 1, Price: 100, PnL: 500})
	if m.Metrics().PeakCapital != 10500 {
		t.Errorf("peak = %v, want 10500", m.Metrics().PeakCapital)
	}

	m.RecordTrade(Trade{ID: "l", Side: "sell", Symbol: "SOL/USD", Size: 1, Price: 100, PnL: -700})
	snap := m.Metrics()
	if snap.PeakCapital != 10500 {
		t.Errorf("peak after loss = %v, want 10500 (monotone)", snap.PeakCapital)
	}
	if snap.CurrentCapital != 9800 {
		t.Errorf("capital = %v, want 9800", snap.CurrentCapital)
	}
	if snap.PeakCapital < snap.CurrentCapital {
		t.Error("peak capital must never be below current capital")
	}
}

func TestSyncCapital(t *testing.T) {
	m := newTestManager()

	m.SyncCapital(12000)
	if m.Capital() != 12000 {
		t.Errorf("capital = %v, want 12000", m.Capital())
	}
	if m.Metrics().PeakCapital != 12000 {
		t.Errorf("peak = %v, want 12000", m.Metrics().PeakCapital)
	}

	m.SyncCapital(11000)
	if m.Metrics().PeakCapital != 12000 {
		t.Error("peak should not fall on downward reconciliation")
	}
}

func TestCostBasisFIFO(t *testing.T) {
	m := newTestManager()
	now := time.Now()
	m.RecordTrade(Trade{ID: "b1", Symbol: "SOL/USD", Side: "buy", Size: 10, Price: 100, Timestamp: now})
	m.RecordTrade(Trade{ID: "b2", Symbol: "SOL/USD", Side: "buy", Size: 10, Price: 120, Timestamp: now})

	// First 10 units come entirely from the 100 lot.
	avg, ok := m.CostBasis("SOL/USD", 10)
	if !ok || math.Abs(avg-100) > 1e-9 {
		t.Errorf("CostBasis(10) = %v,%v, want 100,true", avg, ok)
	}

	// 15 units span both lots: (10*100 + 5*120) / 15.
	avg, ok = m.CostBasis("SOL/USD", 15)
	want := (10*100.0 + 5*120.0) / 15.0
	if !ok || math.Abs(avg-want) > 1e-9 {
		t.Errorf("CostBasis(15) = %v,%v, want %v,true", avg, ok, want)
	}

	// A prior sell consumes the oldest lot first.
	m.RecordTrade(Trade{ID: "s1", Symbol: "SOL/USD", Side: "sell", Size: 10, Price: 130, PnL: 300, Timestamp: now})
	avg, ok = m.CostBasis("SOL/USD", 5)
	if !ok || math.Abs(avg-120) > 1e-9 {
		t.Errorf("CostBasis after sell = %v,%v, want 120,true", avg, ok)
	}

	// More than remaining holdings.
	if _, ok := m.CostBasis("SOL/USD", 11); ok {
		t.Error("CostBasis should report !ok when ledger holds fewer unsold units")
	}
}

func TestMetricsAggregates(t *testing.T) {
	m := newTestManager()
	now := time.Now()
	m.RecordTrade(Trade{ID: "1", Symbol: "SOL/USD", Side: "sell", Size: 1, Price: 100, PnL: 100, Timestamp: now})
	m.RecordTrade(Trade{ID: "2", Symbol: "SOL/USD", Side: "sell", Size: 1, Price: 100, PnL: -50, Timestamp: now})
	m.RecordTrade(Trade{ID: "3", Symbol: "SOL/USD", Side: "sell", Size: 1, Price: 100, PnL: 200, Timestamp: now})

	snap := m.Metrics()
	if snap.TradeCount != 3 {
		t.Errorf("trade count = %d, want 3", snap.TradeCount)
	}
	if math.Abs(snap.WinRate-2.0/3.0) > 1e-9 {
		t.Errorf("win rate = %v, want 2/3", snap.WinRate)
	}
	if math.Abs(snap.TotalPnL-250) > 1e-9 {
		t.Errorf("total pnl = %v, want 250", snap.TotalPnL)
	}
	if snap.SharpeRatio <= 0 {
		t.Errorf("sharpe = %v, want positive for a net-winning ledger", snap.SharpeRatio)
	}
}
