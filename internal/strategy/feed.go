package strategy

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Feed supplies market data ticks to a strategy loop
type Feed interface {
	// Next blocks until the next tick or context cancellation
	Next(ctx context.Context) (Tick, error)
}

// RandomWalkFeed synthesizes a price series for paper trading and
// development against the mock venue. Each tick moves the price by a
// bounded random step.
type RandomWalkFeed struct {
	symbol   string
	interval time.Duration

	mu    sync.Mutex
	price float64
	rng   *rand.Rand
}

// NewRandomWalkFeed creates a feed starting at the given price
func NewRandomWalkFeed(symbol string, startPrice float64, interval time.Duration) *RandomWalkFeed {
	return &RandomWalkFeed{
		symbol:   symbol,
		interval: interval,
		price:    startPrice,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next waits one interval and returns the next synthesized tick
func (f *RandomWalkFeed) Next(ctx context.Context) (Tick, error) {
	select {
	case <-ctx.Done():
		return Tick{}, ctx.Err()
	case <-time.After(f.interval):
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Step up to 0.5% in either direction, floored well above zero.
	step := (f.rng.Float64() - 0.5) * 0.01
	f.price *= 1 + step
	if f.price < 0.0001 {
		f.price = 0.0001
	}

	return Tick{
		Symbol:    f.symbol,
		Price:     f.price,
		Volume:    f.rng.Float64() * 1000,
		Timestamp: time.Now(),
	}, nil
}

var _ Feed = (*RandomWalkFeed)(nil)
