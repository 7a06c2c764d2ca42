// Package risk gates and sizes proposed trades against the capital pool.
// The manager tracks current capital, its high-water mark, and an
// append-only trade ledger; validation and sizing always read a consistent
// snapshot under the lock so concurrent pipelines cannot both spend the
// same capital headroom.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Trade is one entry of the append-only ledger.
type Trade struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"` // buy or sell
	Size      float64   `json:"size"`
	Price     float64   `json:"price"`
	PnL       float64   `json:"pnl"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds risk limits. Fractions are in [0,1].
type Config struct {
	InitialCapital      float64 `json:"initial_capital"`
	MaxDrawdown         float64 `json:"max_drawdown"`          // max fractional decline from peak
	MaxPositionFraction float64 `json:"max_position_fraction"` // max notional per trade as fraction of capital
	MinConfidence       float64 `json:"min_confidence"`        // reject signals below this
}

// DefaultConfig returns the limits the original deployment ran with.
func DefaultConfig() Config {
	return Config{
		InitialCapital:      10000,
		MaxDrawdown:         0.10,
		MaxPositionFraction: 0.10,
		MinConfidence:       0.5,
	}
}

// Manager is the stateful risk gate. Process-lifetime singleton.
type Manager struct {
	config Config
	logger zerolog.Logger

	mu             sync.RWMutex
	initialCapital float64
	currentCapital float64
	peakCapital    float64
	totalPnL       float64
	ledger         []Trade
}

// NewManager creates a risk manager with capital at its initial level.
func NewManager(config Config, logger zerolog.Logger) *Manager {
	if config.MaxPositionFraction <= 0 {
		config.MaxPositionFraction = DefaultConfig().MaxPositionFraction
	}
	if config.MaxDrawdown <= 0 {
		config.MaxDrawdown = DefaultConfig().MaxDrawdown
	}
	return &Manager{
		config:         config,
		logger:         logger,
		initialCapital: config.InitialCapital,
		currentCapital: config.InitialCapital,
		peakCapital:    config.InitialCapital,
	}
}

// ValidateTrade reports whether a proposed trade is allowed, with a reason
// when it is not. A trade is rejected when its notional value exceeds
// available capital or the per-trade fraction cap, when confidence is below
// the floor, or when losing the full notional would push drawdown past the
// configured maximum.
func (m *Manager) ValidateTrade(symbol string, size, price, confidence float64) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	notional := size * price
	if notional <= 0 {
		return false, "non-positive notional"
	}
	if confidence < m.config.MinConfidence {
		return false, fmt.Sprintf("confidence %.2f below floor %.2f", confidence, m.config.MinConfidence)
	}
	if notional > m.currentCapital {
		return false, fmt.Sprintf("notional %.2f exceeds capital %.2f", notional, m.currentCapital)
	}
	if maxNotional := m.currentCapital * m.config.MaxPositionFraction; notional > maxNotional+1e-9 {
		return false, fmt.Sprintf("notional %.2f exceeds %.0f%% position cap (%.2f)",
			notional, m.config.MaxPositionFraction*100, maxNotional)
	}

	// Gate on the drawdown that losing the whole notional would produce.
	if m.peakCapital > 0 {
		worstCase := m.currentCapital - notional
		if dd := (m.peakCapital - worstCase) / m.peakCapital; dd > m.config.MaxDrawdown+1e-9 {
			return false, fmt.Sprintf("trade risks drawdown %.2f%% beyond max %.2f%%",
				dd*100, m.config.MaxDrawdown*100)
		}
	}

	m.logger.Debug().
		Str("symbol", symbol).
		Float64("notional", notional).
		Float64("confidence", confidence).
		Msg("trade validated")
	return true, ""
}

// SizePosition converts confidence into a position size: a capped fraction
// of current capital scaled by confidence. The returned quantity's notional
// never exceeds capital * MaxPositionFraction.
func (m *Manager) SizePosition(confidence, price float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if price <= 0 {
		return 0
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	notional := m.currentCapital * m.config.MaxPositionFraction * confidence
	if notional < 0 {
		return 0
	}
	return notional / price
}

// RecordTrade appends an executed trade to the ledger and applies its
// realized PnL to capital. Peak capital only ever ratchets upward here.
func (m *Manager) RecordTrade(t Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ledger = append(m.ledger, t)
	m.currentCapital += t.PnL
	m.totalPnL += t.PnL
	if m.currentCapital > m.peakCapital {
		m.peakCapital = m.currentCapital
	}

	m.logger.Info().
		Str("trade_id", t.ID).
		Str("symbol", t.Symbol).
		Str("side", t.Side).
		Float64("size", t.Size).
		Float64("price", t.Price).
		Float64("pnl", t.PnL).
		Msg("trade recorded")
}

// Drawdown returns the fractional decline of current capital from its peak.
func (m *Manager) Drawdown() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drawdownLocked()
}

func (m *Manager) drawdownLocked() float64 {
	if m.peakCapital <= 0 {
		return 0
	}
	return (m.peakCapital - m.currentCapital) / m.peakCapital
}

// SyncCapital reconciles local capital with the external ground truth so
// validation never runs on stale figures. The peak only moves up.
func (m *Manager) SyncCapital(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if balance == m.currentCapital {
		return
	}
	m.logger.Debug().
		Float64("local", m.currentCapital).
		Float64("ledger", balance).
		Msg("capital reconciled")
	m.currentCapital = balance
	if balance > m.peakCapital {
		m.peakCapital = balance
	}
}

// Capital returns the current capital figure.
func (m *Manager) Capital() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentCapital
}

// CostBasis returns the FIFO-matched average cost of quantity units of
// symbol from the ledger's prior buys, consuming earlier sells first.
// ok is false when the ledger holds fewer than quantity unsold units.
func (m *Manager) CostBasis(symbol string, quantity float64) (avgCost float64, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type lot struct{ size, price float64 }
	var lots []lot
	for _, t := range m.ledger {
		if t.Symbol != symbol {
			continue
		}
		switch t.Side {
		case "buy":
			lots = append(lots, lot{t.Size, t.Price})
		case "sell":
			// Prior sells consumed the oldest lots first.
			remaining := t.Size
			for remaining > 0 && len(lots) > 0 {
				if lots[0].size > remaining {
					lots[0].size -= remaining
					remaining = 0
				} else {
					remaining -= lots[0].size
					lots = lots[1:]
				}
			}
		}
	}

	need := quantity
	var cost float64
	for _, l := range lots {
		if need <= 0 {
			break
		}
		take := math.Min(l.size, need)
		cost += take * l.price
		need -= take
	}
	if need > 1e-9 || quantity <= 0 {
		return 0, false
	}
	return cost / quantity, true
}

// Snapshot is a read-only view of risk state.
type Snapshot struct {
	InitialCapital float64 `json:"initial_capital"`
	CurrentCapital float64 `json:"current_capital"`
	PeakCapital    float64 `json:"peak_capital"`
	Drawdown       float64 `json:"drawdown"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalReturn    float64 `json:"total_return"`
	WinRate        float64 `json:"win_rate"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	TradeCount     int     `json:"trade_count"`
}

// Metrics returns aggregate performance figures from the ledger.
func (m *Manager) Metrics() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		InitialCapital: m.initialCapital,
		CurrentCapital: m.currentCapital,
		PeakCapital:    m.peakCapital,
		Drawdown:       m.drawdownLocked(),
		TotalPnL:       m.totalPnL,
		TradeCount:     len(m.ledger),
	}
	if m.initialCapital > 0 {
		s.TotalReturn = (m.currentCapital - m.initialCapital) / m.initialCapital
	}
	if len(m.ledger) > 0 {
		wins := 0
		for _, t := range m.ledger {
			if t.PnL > 0 {
				wins++
			}
		}
		s.WinRate = float64(wins) / float64(len(m.ledger))
	}
	s.SharpeRatio = m.sharpeLocked()
	return s
}

// sharpeLocked computes a per-trade Sharpe-style ratio: mean PnL over its
// standard deviation. Zero until there are enough trades to be meaningful.
func (m *Manager) sharpeLocked() float64 {
	if len(m.ledger) < 2 {
		return 0
	}
	var sum float64
	for _, t := range m.ledger {
		sum += t.PnL
	}
	mean := sum / float64(len(m.ledger))

	var variance float64
	for _, t := range m.ledger {
		d := t.PnL - mean
		variance += d * d
	}
	variance /= float64(len(m.ledger))
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

// Ledger returns a copy of the trade ledger, most recent last.
func (m *Manager) Ledger() []Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Trade, len(m.ledger))
	copy(out, m.ledger)
	return out
}
