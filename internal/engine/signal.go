package engine

import (
	"time"

	"github.com/google/uuid"
)

// Side is the direction of a trade signal
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
	SideHold Side = "hold"
)

// Mode selects whether venue calls are real or simulated
type Mode string

const (
	ModeLive  Mode = "live"
	ModePaper Mode = "paper"
)

// Signal is a candidate trade produced by a strategy
type Signal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size,omitempty"`
	Confidence float64   `json:"confidence"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// NewSignal builds a signal with a fresh id and creation time.
// Size zero means the engine sizes the position from confidence.
func NewSignal(symbol string, side Side, price, confidence float64) Signal {
	return Signal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Price:      price,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}
}

// Expired reports whether the signal's validity window has passed.
// A zero ExpiresAt never expires.
func (s Signal) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
