// Package retry executes fallible operations with classified exponential
// backoff. Retryability comes from the error taxonomy: transient failures
// sleep and retry, policy failures return immediately regardless of how many
// attempts remain.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/errs"
)

// Config controls backoff behavior for one class of operation.
type Config struct {
	MaxAttempts       int           `json:"max_attempts"`
	InitialDelay      time.Duration `json:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
}

// DefaultConfig is the balanced preset for ordinary operations.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// AggressiveConfig retries hard; used for critical operations like trade
// submission where giving up is expensive.
func AggressiveConfig() Config {
	return Config{
		MaxAttempts:       5,
		InitialDelay:      50 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// ConservativeConfig backs off quickly; used for non-critical operations
// like balance refreshes.
func ConservativeConfig() Config {
	return Config{
		MaxAttempts:       2,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          15 * time.Second,
		BackoffMultiplier: 3.0,
	}
}

// Do invokes operation until it succeeds, exhausts MaxAttempts, or returns a
// non-retryable error. The delay doubles (by BackoffMultiplier) per attempt,
// capped at MaxDelay. Context cancellation interrupts the backoff sleep.
func Do[T any](ctx context.Context, cfg Config, name string, logger zerolog.Logger, operation func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		logger.Debug().Str("op", name).Int("attempt", attempt).Int("max_attempts", cfg.MaxAttempts).Msg("attempting operation")

		result, err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("op", name).Int("attempts", attempt).Msg("operation succeeded after retries")
			}
			return result, nil
		}

		if attempt >= cfg.MaxAttempts {
			logger.Error().Str("op", name).Int("attempts", attempt).Err(err).Msg("operation failed, attempts exhausted")
			return zero, err
		}

		if !errs.Retryable(err) {
			logger.Warn().Str("op", name).Int("attempt", attempt).Err(err).Msg("non-retryable error, giving up")
			return zero, err
		}

		logger.Warn().Str("op", name).Int("attempt", attempt).Dur("retry_in", delay).Err(err).Msg("retryable failure, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, errs.Wrap(errs.KindTimeout, ctx.Err(), "%s canceled during backoff", name)
		}

		delay = nextDelay(delay, cfg)
	}
}

// Run is the result-less form of Do.
func Run(ctx context.Context, cfg Config, name string, logger zerolog.Logger, operation func(ctx context.Context) error) error {
	_, err := Do(ctx, cfg, name, logger, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}

func nextDelay(delay time.Duration, cfg Config) time.Duration {
	next := time.Duration(float64(delay) * cfg.BackoffMultiplier)
	if next > cfg.MaxDelay {
		next = cfg.MaxDelay
	}
	return next
}
