// Package supervisor keeps long-running workers alive. A worker
// iteration that fails or panics is logged, counted and retried with
// escalating backoff; a long streak of failures triggers an extended
// cooldown instead of a hot crash loop.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/events"
	"solana-trading-bot/internal/monitoring"
)

// Config controls the restart policy
type Config struct {
	Interval      time.Duration // pause between successful iterations
	BaseBackoff   time.Duration // backoff after the first failure
	MaxBackoff    time.Duration // backoff ceiling
	CooldownAfter int           // consecutive failures before the extended cooldown
	Cooldown      time.Duration // extended cooldown duration
	PanicWeight   int           // how many failures one panic counts as
}

// DefaultConfig returns the restart policy used in production
func DefaultConfig() Config {
	return Config{
		Interval:      1 * time.Second,
		BaseBackoff:   1 * time.Second,
		MaxBackoff:    30 * time.Second,
		CooldownAfter: 5,
		Cooldown:      2 * time.Minute,
		PanicWeight:   2,
	}
}

// Worker runs one function in a supervised loop
type Worker struct {
	name   string
	config Config
	fn     func(ctx context.Context) error
	logger zerolog.Logger
	bus    *events.Bus

	mu          sync.Mutex
	consecutive int
	iterations  uint64
	lastErr     error
}

// NewWorker creates a supervised worker. The bus may be nil.
func NewWorker(name string, config Config, fn func(ctx context.Context) error, logger zerolog.Logger, bus *events.Bus) *Worker {
	if config.PanicWeight < 1 {
		config.PanicWeight = 1
	}
	return &Worker{
		name:   name,
		config: config,
		fn:     fn,
		logger: logger.With().Str("worker", name).Logger(),
		bus:    bus,
	}
}

// Run executes iterations until the context is cancelled
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().Msg("worker started")
	defer w.logger.Info().Msg("worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		err, panicked := w.iterate(ctx)

		w.mu.Lock()
		w.iterations++
		if err == nil {
			w.consecutive = 0
			w.lastErr = nil
		} else {
			weight := 1
			if panicked {
				weight = w.config.PanicWeight
			}
			w.consecutive += weight
			w.lastErr = err
		}
		consecutive := w.consecutive
		w.mu.Unlock()

		var pause time.Duration
		switch {
		case err == nil:
			pause = w.config.Interval
		case consecutive >= w.config.CooldownAfter:
			pause = w.config.Cooldown
			w.logger.Error().
				Err(err).
				Int("consecutive", consecutive).
				Dur("cooldown", pause).
				Msg("failure streak, entering cooldown")
			w.mu.Lock()
			w.consecutive = 0
			w.mu.Unlock()
		default:
			pause = w.backoff(consecutive)
			w.logger.Warn().
				Err(err).
				Bool("panicked", panicked).
				Int("consecutive", consecutive).
				Dur("backoff", pause).
				Msg("worker iteration failed")
		}

		if err != nil {
			severity := "error"
			if panicked {
				severity = "panic"
			}
			monitoring.WorkerRestarts.WithLabelValues(w.name, severity).Inc()
			if w.bus != nil {
				w.bus.PublishWorkerRestart(w.name, consecutive, panicked)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

// iterate runs one iteration, converting panics into errors
func (w *Worker) iterate(ctx context.Context) (err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("worker %s panicked: %v", w.name, r)
		}
	}()
	return w.fn(ctx), false
}

// backoff grows exponentially with the failure streak, capped at the
// configured maximum
func (w *Worker) backoff(consecutive int) time.Duration {
	delay := w.config.BaseBackoff
	for i := 1; i < consecutive; i++ {
		delay *= 2
		if delay >= w.config.MaxBackoff {
			return w.config.MaxBackoff
		}
	}
	if delay > w.config.MaxBackoff {
		return w.config.MaxBackoff
	}
	return delay
}

// ConsecutiveFailures returns the current failure streak
func (w *Worker) ConsecutiveFailures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.consecutive
}

// Stats reports the worker's health counters
func (w *Worker) Stats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	stats := map[string]interface{}{
		"name":                 w.name,
		"iterations":           w.iterations,
		"consecutive_failures": w.consecutive,
	}
	if w.lastErr != nil {
		stats["last_error"] = w.lastErr.Error()
	}
	return stats
}
