// Package strategy turns market data into trade signals.
package strategy

import (
	"time"

	"solana-trading-bot/internal/engine"
)

// Tick is one observed market data point
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// Producer evaluates incoming market data and emits a signal when
// conditions are met. A nil signal means no action.
type Producer interface {
	Name() string
	Symbol() string
	Observe(tick Tick) *engine.Signal
}

// CalculateSMA returns the simple moving average of the last period
// prices, or 0 when there is not enough data
func CalculateSMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}
