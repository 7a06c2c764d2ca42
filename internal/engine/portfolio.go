package engine

import (
	"sync"
	"time"

	"solana-trading-bot/internal/errs"
)

// PendingUpdate records an optimistic portfolio change that has not
// been confirmed by the venue yet. It carries everything needed to
// revert the change exactly.
type PendingUpdate struct {
	TradeID   string    `json:"trade_id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Size      float64   `json:"size"`
	Price     float64   `json:"price"`
	AppliedAt time.Time `json:"applied_at"`
}

// Portfolio tracks cash and per-symbol holdings. Cash and holdings
// never go negative; an apply that would breach that fails with an
// insufficient funds error and changes nothing.
type Portfolio struct {
	mu       sync.RWMutex
	cash     float64
	holdings map[string]float64
}

// NewPortfolio creates a portfolio with the given starting cash
func NewPortfolio(cash float64) *Portfolio {
	return &Portfolio{
		cash:     cash,
		holdings: make(map[string]float64),
	}
}

// Apply performs the optimistic update for a pending trade
func (p *Portfolio) Apply(u PendingUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	notional := u.Size * u.Price
	switch u.Side {
	case SideBuy:
		if p.cash < notional {
			return errs.InsufficientFunds("buy %s: need %.2f cash, have %.2f", u.Symbol, notional, p.cash)
		}
		p.cash -= notional
		p.holdings[u.Symbol] += u.Size
	case SideSell:
		if p.holdings[u.Symbol] < u.Size {
			return errs.InsufficientFunds("sell %s: need %.6f units, have %.6f", u.Symbol, u.Size, p.holdings[u.Symbol])
		}
		p.holdings[u.Symbol] -= u.Size
		p.cash += notional
	default:
		return errs.Validation("unsupported side %q", u.Side)
	}
	return nil
}

// Revert undoes a previously applied pending update
func (p *Portfolio) Revert(u PendingUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	notional := u.Size * u.Price
	switch u.Side {
	case SideBuy:
		p.cash += notional
		p.holdings[u.Symbol] -= u.Size
		if p.holdings[u.Symbol] <= 0 {
			delete(p.holdings, u.Symbol)
		}
	case SideSell:
		p.holdings[u.Symbol] += u.Size
		p.cash -= notional
	}
}

// Cash returns the spendable cash balance
func (p *Portfolio) Cash() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

// Position returns the held quantity for a symbol
func (p *Portfolio) Position(symbol string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.holdings[symbol]
}

// Snapshot returns the cash balance and a copy of all holdings
func (p *Portfolio) Snapshot() (cash float64, holdings map[string]float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	holdings = make(map[string]float64, len(p.holdings))
	for sym, qty := range p.holdings {
		holdings[sym] = qty
	}
	return p.cash, holdings
}

// SetCash overwrites the cash balance, used when reconciling against
// the venue's reported balance
func (p *Portfolio) SetCash(cash float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cash = cash
}
