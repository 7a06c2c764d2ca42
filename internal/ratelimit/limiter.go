// Package ratelimit provides a per-upstream sliding-window throttle. Every
// outbound request to a rate-limited upstream must Acquire a slot first;
// when the window's conservative budget is spent the caller is suspended
// until the window rolls over. This is the system's backpressure mechanism
// against flaky upstreams.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/errs"
)

// Config sizes one upstream's request window. MaxRequests should sit below
// the upstream's documented limit.
type Config struct {
	MaxRequests int           `json:"max_requests"`
	Window      time.Duration `json:"window"`
}

// Limiter throttles one upstream class.
type Limiter struct {
	name   string
	config Config
	logger zerolog.Logger

	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// New creates a limiter for the named upstream class.
func New(name string, config Config, logger zerolog.Logger) *Limiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = 60
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &Limiter{
		name:        name,
		config:      config,
		logger:      logger.With().Str("upstream", name).Logger(),
		windowStart: time.Now(),
	}
}

// Acquire reserves a request slot, suspending the caller for the remaining
// window time when the budget is spent. Returns a rate-limit error only if
// ctx is canceled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait := l.tryReserve()
		if wait <= 0 {
			return nil
		}

		l.logger.Debug().Dur("wait", wait).Msg("rate limit window exhausted, waiting")
		select {
		case <-time.After(wait):
			// window has rolled over, try again
		case <-ctx.Done():
			return errs.Wrap(errs.KindRateLimitExceeded, ctx.Err(), "canceled waiting for %s rate limit window", l.name)
		}
	}
}

// tryReserve increments the counter if budget remains, otherwise returns
// how long until the window resets. The lock is never held across a sleep.
func (l *Limiter) tryReserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.windowStart) >= l.config.Window {
		l.count = 0
		l.windowStart = now
	}

	if l.count >= l.config.MaxRequests {
		remaining := l.config.Window - now.Sub(l.windowStart)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		return remaining
	}

	l.count++
	return 0
}

// Usage returns the current window's request count and capacity.
func (l *Limiter) Usage() (count, max int, resetIn time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	resetIn = l.config.Window - time.Since(l.windowStart)
	if resetIn < 0 {
		resetIn = 0
	}
	return l.count, l.config.MaxRequests, resetIn
}

// Registry holds one limiter per upstream class.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	defaults Config
	logger   zerolog.Logger
}

// NewRegistry creates a registry that builds missing limiters with defaults.
func NewRegistry(defaults Config, logger zerolog.Logger) *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
		logger:   logger,
	}
}

// Configure installs a limiter with explicit settings for an upstream.
func (r *Registry) Configure(name string, config Config) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := New(name, config, r.logger)
	r.limiters[name] = l
	return l
}

// Get returns the limiter for an upstream, creating one with the registry
// defaults on first use.
func (r *Registry) Get(name string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[name]; ok {
		return l
	}
	l := New(name, r.defaults, r.logger)
	r.limiters[name] = l
	return l
}
