// Package circuit implements a three-state circuit breaker around calls to
// unreliable upstreams (venue, oracle, fee source). The breaker is the
// outermost resilience layer: when an upstream keeps failing we stop calling
// it entirely for a cooldown instead of piling retries onto a dead service.
package circuit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/errs"
)

// BreakerState represents the circuit breaker state.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"    // Normal operation
	StateOpen     BreakerState = "open"      // Failing fast
	StateHalfOpen BreakerState = "half_open" // Testing recovery
)

// Config holds circuit breaker thresholds.
type Config struct {
	FailureThreshold int           `json:"failure_threshold"` // consecutive failures to open
	SuccessThreshold int           `json:"success_threshold"` // half-open successes to close
	Timeout          time.Duration `json:"timeout"`           // open -> half-open cooldown
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Breaker guards a single upstream. All state transitions happen under the
// mutex; the wrapped operation itself runs outside it so a slow upstream
// call never serializes unrelated callers.
type Breaker struct {
	name   string
	config Config
	logger zerolog.Logger

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time

	onTrip     func(name string)
	onReset    func(name string)
	onHalfOpen func(name string)
}

// New creates a breaker for the named upstream.
func New(name string, config Config, logger zerolog.Logger) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultConfig().SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Breaker{
		name:   name,
		config: config,
		logger: logger.With().Str("upstream", name).Logger(),
		state:  StateClosed,
	}
}

// OnTrip sets a callback invoked (in its own goroutine) when the breaker opens.
func (b *Breaker) OnTrip(handler func(name string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = handler
}

// OnReset sets a callback invoked when the breaker closes after recovery.
func (b *Breaker) OnReset(handler func(name string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReset = handler
}

// OnHalfOpen sets a callback invoked when the cooldown elapses and the
// breaker starts admitting probe calls.
func (b *Breaker) OnHalfOpen(handler func(name string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onHalfOpen = handler
}

// Call runs operation through the breaker. While Open it fails fast with a
// retryable network error and does not invoke the operation; once Timeout
// has elapsed since the last failure it admits probe calls in HalfOpen.
func (b *Breaker) Call(ctx context.Context, operation func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := operation(ctx)
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// admit decides whether a call may proceed, transitioning Open -> HalfOpen
// when the cooldown has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if time.Since(b.lastFailure) < b.config.Timeout {
			return errs.Network("circuit breaker open for %s", b.name)
		}
		b.state = StateHalfOpen
		b.successes = 0
		b.logger.Info().Msg("circuit breaker half-open, testing recovery")
		if b.onHalfOpen != nil {
			go b.onHalfOpen(b.name)
		}
	}
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			b.logger.Info().Msg("circuit breaker closed, upstream recovered")
			if b.onReset != nil {
				go b.onReset(b.name)
			}
		}
	}
	b.mu.Unlock()
}

func (b *Breaker) onFailure() {
	b.mu.Lock()

	tripped := false
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.trip()
			tripped = true
		}
	case StateHalfOpen:
		// A failed probe reopens immediately and re-arms the cooldown.
		b.trip()
		tripped = true
	}
	handler := b.onTrip
	b.mu.Unlock()

	if tripped && handler != nil {
		go handler(b.name)
	}
}

// trip opens the breaker. Caller holds the mutex.
func (b *Breaker) trip() {
	b.state = StateOpen
	b.lastFailure = time.Now()
	b.successes = 0
	b.logger.Error().Int("failures", b.failures).Msg("circuit breaker open")
}

// State returns the current breaker state. An Open breaker whose cooldown
// has elapsed still reports Open until the next admitted call probes it.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the upstream name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// Stats returns current counters for the health endpoint.
func (b *Breaker) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"upstream":          b.name,
		"state":             string(b.state),
		"failures":          b.failures,
		"successes":         b.successes,
		"failure_threshold": b.config.FailureThreshold,
		"success_threshold": b.config.SuccessThreshold,
	}
	if !b.lastFailure.IsZero() {
		stats["last_failure"] = b.lastFailure
	}
	return stats
}
