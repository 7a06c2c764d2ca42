package strategy

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/engine"
	"solana-trading-bot/internal/monitoring"
)

// SMACrossoverConfig configures the moving average crossover strategy
type SMACrossoverConfig struct {
	Symbol      string
	FastPeriod  int
	SlowPeriod  int
	StopLoss    float64       // fraction below entry, 0 disables
	TakeProfit  float64       // fraction above entry, 0 disables
	SignalTTL   time.Duration // how long an emitted signal stays valid
	MinInterval time.Duration // minimum spacing between signals
}

// DefaultSMACrossoverConfig returns a 10/20 crossover with a 30 second
// signal validity window
func DefaultSMACrossoverConfig(symbol string) SMACrossoverConfig {
	return SMACrossoverConfig{
		Symbol:      symbol,
		FastPeriod:  10,
		SlowPeriod:  20,
		StopLoss:    0.03,
		TakeProfit:  0.06,
		SignalTTL:   30 * time.Second,
		MinInterval: time.Minute,
	}
}

// SMACrossover emits a buy when the fast average crosses above the
// slow one and a sell on the opposite cross. Confidence scales with
// the separation between the averages.
type SMACrossover struct {
	config SMACrossoverConfig
	logger zerolog.Logger

	mu         sync.Mutex
	prices     []float64
	lastAbove  bool
	primed     bool
	lastSignal time.Time
}

// NewSMACrossover creates the strategy. SlowPeriod must exceed
// FastPeriod; the defaults are used for nonsense values.
func NewSMACrossover(config SMACrossoverConfig, logger zerolog.Logger) *SMACrossover {
	if config.FastPeriod <= 0 || config.SlowPeriod <= config.FastPeriod {
		def := DefaultSMACrossoverConfig(config.Symbol)
		config.FastPeriod = def.FastPeriod
		config.SlowPeriod = def.SlowPeriod
	}
	return &SMACrossover{
		config: config,
		logger: logger.With().Str("strategy", "sma_crossover").Str("symbol", config.Symbol).Logger(),
	}
}

func (s *SMACrossover) Name() string {
	return fmt.Sprintf("SMACrossover-%d-%d", s.config.FastPeriod, s.config.SlowPeriod)
}

func (s *SMACrossover) Symbol() string { return s.config.Symbol }

// Observe records a tick and returns a signal when the averages cross
func (s *SMACrossover) Observe(tick Tick) *engine.Signal {
	if tick.Symbol != s.config.Symbol || tick.Price <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices = append(s.prices, tick.Price)
	if max := s.config.SlowPeriod * 2; len(s.prices) > max {
		s.prices = s.prices[len(s.prices)-max:]
	}
	if len(s.prices) < s.config.SlowPeriod {
		return nil
	}

	fast := CalculateSMA(s.prices, s.config.FastPeriod)
	slow := CalculateSMA(s.prices, s.config.SlowPeriod)
	above := fast > slow

	if !s.primed {
		s.primed = true
		s.lastAbove = above
		return nil
	}
	if above == s.lastAbove {
		return nil
	}
	s.lastAbove = above

	now := tick.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	if s.config.MinInterval > 0 && now.Sub(s.lastSignal) < s.config.MinInterval {
		return nil
	}
	s.lastSignal = now

	side := engine.SideSell
	if above {
		side = engine.SideBuy
	}

	sig := engine.NewSignal(s.config.Symbol, side, tick.Price, s.confidence(fast, slow))
	sig.CreatedAt = now
	if s.config.SignalTTL > 0 {
		sig.ExpiresAt = now.Add(s.config.SignalTTL)
	}
	if side == engine.SideBuy {
		if s.config.StopLoss > 0 {
			sig.StopLoss = tick.Price * (1 - s.config.StopLoss)
		}
		if s.config.TakeProfit > 0 {
			sig.TakeProfit = tick.Price * (1 + s.config.TakeProfit)
		}
	}
	sig.Reason = fmt.Sprintf("fast SMA %.4f crossed %s slow SMA %.4f", fast, direction(above), slow)

	monitoring.SignalsGenerated.WithLabelValues(s.config.Symbol).Inc()
	s.logger.Info().
		Str("side", string(side)).
		Float64("price", tick.Price).
		Float64("confidence", sig.Confidence).
		Msg("signal generated")

	return &sig
}

// confidence maps the relative separation of the averages into
// [0.5, 0.95]. A 1% spread saturates the scale.
func (s *SMACrossover) confidence(fast, slow float64) float64 {
	if slow == 0 {
		return 0.5
	}
	spread := math.Abs(fast-slow) / slow
	c := 0.5 + spread*45
	if c > 0.95 {
		c = 0.95
	}
	return c
}

func direction(above bool) string {
	if above {
		return "above"
	}
	return "below"
}

var _ Producer = (*SMACrossover)(nil)
