// Package engine runs the trade execution pipeline: risk gating,
// optimistic portfolio updates, the protected venue call and the
// compensating rollback when the venue rejects a trade.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-trading-bot/internal/circuit"
	"solana-trading-bot/internal/errs"
	"solana-trading-bot/internal/events"
	"solana-trading-bot/internal/fees"
	"solana-trading-bot/internal/monitoring"
	"solana-trading-bot/internal/ratelimit"
	"solana-trading-bot/internal/retry"
	"solana-trading-bot/internal/risk"
	"solana-trading-bot/internal/venue"
)

// Result describes a committed trade
type Result struct {
	TradeID    string    `json:"trade_id"`
	VenueRef   string    `json:"venue_ref"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	Price      float64   `json:"price"`
	Fee        uint64    `json:"fee"`
	PnL        float64   `json:"pnl"`
	Mode       Mode      `json:"mode"`
	ExecutedAt time.Time `json:"executed_at"`
}

// PendingJournal persists pending updates so an operator can inspect
// what was in flight if the process dies mid-trade
type PendingJournal interface {
	Save(ctx context.Context, u PendingUpdate) error
	Remove(ctx context.Context, tradeID string) error
	Load(ctx context.Context) ([]PendingUpdate, error)
}

// Recorder stores committed trades in the ledger
type Recorder interface {
	RecordExecution(ctx context.Context, r Result) error
}

// Deps wires the engine to its collaborators. Journal and Store may
// be nil when no persistence is configured.
type Deps struct {
	Risk      *risk.Manager
	Portfolio *Portfolio
	Client    venue.ExecutionClient
	Breaker   *circuit.Breaker
	Limiter   *ratelimit.Limiter
	Fees      *fees.Estimator
	Bus       *events.Bus
	Journal   PendingJournal
	Store     Recorder
	Retry     retry.Config
	Mode      Mode
	Logger    zerolog.Logger
}

// Engine is the trade execution pipeline
type Engine struct {
	risk      *risk.Manager
	portfolio *Portfolio
	client    venue.ExecutionClient
	breaker   *circuit.Breaker
	limiter   *ratelimit.Limiter
	fees      *fees.Estimator
	bus       *events.Bus
	journal   PendingJournal
	store     Recorder
	retryCfg  retry.Config
	mode      Mode
	logger    zerolog.Logger

	mu        sync.Mutex
	pending   map[string]PendingUpdate
	lastPrice map[string]float64
}

// New creates an execution engine
func New(deps Deps) *Engine {
	return &Engine{
		risk:      deps.Risk,
		portfolio: deps.Portfolio,
		client:    deps.Client,
		breaker:   deps.Breaker,
		limiter:   deps.Limiter,
		fees:      deps.Fees,
		bus:       deps.Bus,
		journal:   deps.Journal,
		store:     deps.Store,
		retryCfg:  deps.Retry,
		mode:      deps.Mode,
		logger:    deps.Logger,
		pending:   make(map[string]PendingUpdate),
		lastPrice: make(map[string]float64),
	}
}

// Mode returns the configured execution mode
func (e *Engine) Mode() Mode { return e.mode }

// Portfolio returns the engine's portfolio
func (e *Engine) Portfolio() *Portfolio { return e.portfolio }

// PendingCount returns the number of trades currently in flight
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Execute runs one signal through the full pipeline. Hold signals are
// a no-op. On venue failure the optimistic portfolio update is
// reverted and the classified error is returned.
func (e *Engine) Execute(ctx context.Context, sig Signal) (*Result, error) {
	if sig.Side == SideHold {
		return nil, nil
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.Expired(time.Now()) {
		e.reject(sig, "expired", "signal expired before execution")
		return nil, errs.Validation("signal %s expired before execution", sig.ID)
	}

	if e.mode == ModeLive {
		e.reconcile(ctx)
	}

	size := sig.Size
	if size <= 0 {
		if sig.Side == SideSell {
			size = e.portfolio.Position(sig.Symbol)
		} else {
			size = e.risk.SizePosition(sig.Confidence, sig.Price)
		}
	}

	update := PendingUpdate{
		TradeID:   sig.ID,
		Symbol:    sig.Symbol,
		Side:      sig.Side,
		Size:      size,
		Price:     sig.Price,
		AppliedAt: time.Now(),
	}

	// Validation and the optimistic apply happen under one lock so
	// two signals cannot both claim the same capital.
	if err := e.reserve(sig, update); err != nil {
		return nil, err
	}

	if e.journal != nil {
		if jerr := e.journal.Save(ctx, update); jerr != nil {
			e.logger.Warn().Err(jerr).Str("trade_id", sig.ID).Msg("failed to journal pending update")
		}
	}

	priority := fees.PriorityForConfidence(sig.Confidence)
	estimate := e.fees.Estimate(priority)

	venueRef, elapsed, err := e.submit(ctx, sig, size, estimate.RecommendedFee)
	if err != nil {
		e.rollback(ctx, sig, update, err)
		return nil, err
	}

	return e.commit(ctx, sig, update, venueRef, estimate.RecommendedFee, elapsed)
}

// reserve validates the trade and applies the optimistic update
// atomically, registering the pending entry.
func (e *Engine) reserve(sig Signal, update PendingUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.pending[sig.ID]; exists {
		return errs.Validation("trade %s already in flight", sig.ID)
	}

	if ok, reason := e.risk.ValidateTrade(sig.Symbol, update.Size, sig.Price, sig.Confidence); !ok {
		e.reject(sig, "risk", reason)
		return errs.Validation("trade rejected: %s", reason)
	}

	if err := e.portfolio.Apply(update); err != nil {
		e.reject(sig, "insufficient_funds", err.Error())
		return err
	}

	e.pending[sig.ID] = update
	return nil
}

// submit runs the protected venue call. In paper mode the venue is
// skipped entirely and a synthetic reference is returned.
func (e *Engine) submit(ctx context.Context, sig Signal, size float64, fee uint64) (string, time.Duration, error) {
	if e.mode == ModePaper {
		return "paper-" + uuid.NewString(), 0, nil
	}

	req := venue.TradeRequest{
		Symbol:  sig.Symbol,
		Size:    size,
		IsBuy:   sig.Side == SideBuy,
		Price:   sig.Price,
		FeeHint: fee,
	}

	var venueRef string
	start := time.Now()
	err := e.breaker.Call(ctx, func(ctx context.Context) error {
		return retry.Run(ctx, e.retryCfg, "venue_execute", e.logger, func(ctx context.Context) error {
			if err := e.limiter.Acquire(ctx); err != nil {
				return err
			}
			ref, err := e.client.ExecuteTrade(ctx, req)
			if err != nil {
				return err
			}
			venueRef = ref
			return nil
		})
	})
	return venueRef, time.Since(start), err
}

// rollback reverts the optimistic update after a venue failure
func (e *Engine) rollback(ctx context.Context, sig Signal, update PendingUpdate, cause error) {
	e.portfolio.Revert(update)

	e.mu.Lock()
	delete(e.pending, sig.ID)
	e.mu.Unlock()

	if e.journal != nil {
		if jerr := e.journal.Remove(ctx, sig.ID); jerr != nil {
			e.logger.Warn().Err(jerr).Str("trade_id", sig.ID).Msg("failed to clear journaled update")
		}
	}

	monitoring.Rollbacks.Inc()
	if e.bus != nil {
		e.bus.PublishTradeRolledBack(sig.ID, sig.Symbol, string(sig.Side), cause)
	}

	e.logger.Error().
		Err(cause).
		Str("trade_id", sig.ID).
		Str("symbol", sig.Symbol).
		Str("side", string(sig.Side)).
		Float64("size", update.Size).
		Msg("trade failed, portfolio restored")
}

// commit records the confirmed trade and clears the pending entry
func (e *Engine) commit(ctx context.Context, sig Signal, update PendingUpdate, venueRef string, fee uint64, elapsed time.Duration) (*Result, error) {
	pnl := 0.0
	if sig.Side == SideSell {
		if avgCost, ok := e.risk.CostBasis(sig.Symbol, update.Size); ok {
			pnl = (sig.Price - avgCost) * update.Size
		}
	}

	e.risk.RecordTrade(risk.Trade{
		ID:        sig.ID,
		Symbol:    sig.Symbol,
		Side:      string(sig.Side),
		Size:      update.Size,
		Price:     sig.Price,
		PnL:       pnl,
		Timestamp: time.Now(),
	})

	e.mu.Lock()
	delete(e.pending, sig.ID)
	e.lastPrice[sig.Symbol] = sig.Price
	e.mu.Unlock()

	if e.journal != nil {
		if jerr := e.journal.Remove(ctx, sig.ID); jerr != nil {
			e.logger.Warn().Err(jerr).Str("trade_id", sig.ID).Msg("failed to clear journaled update")
		}
	}

	if e.mode == ModeLive {
		e.fees.Record(fee, elapsed)
		e.reconcile(ctx)
	}

	result := &Result{
		TradeID:    sig.ID,
		VenueRef:   venueRef,
		Symbol:     sig.Symbol,
		Side:       sig.Side,
		Size:       update.Size,
		Price:      sig.Price,
		Fee:        fee,
		PnL:        pnl,
		Mode:       e.mode,
		ExecutedAt: time.Now(),
	}

	if e.store != nil {
		if serr := e.store.RecordExecution(ctx, *result); serr != nil {
			e.logger.Warn().Err(serr).Str("trade_id", sig.ID).Msg("failed to persist trade")
		}
	}

	monitoring.SignalsExecuted.WithLabelValues(string(e.mode)).Inc()
	monitoring.RecordTradeResult(pnl)
	monitoring.Equity.Set(e.risk.Capital())

	if e.bus != nil {
		e.bus.PublishTradeExecuted(sig.ID, sig.Symbol, string(sig.Side), update.Size, sig.Price, pnl, string(e.mode))
		e.bus.PublishBalanceUpdate(e.risk.Capital(), e.risk.Drawdown())
	}

	e.logger.Info().
		Str("trade_id", sig.ID).
		Str("venue_ref", venueRef).
		Str("symbol", sig.Symbol).
		Str("side", string(sig.Side)).
		Float64("size", update.Size).
		Float64("price", sig.Price).
		Float64("pnl", pnl).
		Str("mode", string(e.mode)).
		Msg("trade executed")

	return result, nil
}

// reconcile pulls the venue balance and syncs the portfolio cash and
// risk capital. The venue does not yet know about trades that are
// still in flight, so the reported balance is netted against every
// outstanding pending update before it overwrites local cash;
// otherwise a concurrent trade's reconcile would resurrect cash that
// another trade has reserved, and its later rollback would credit it
// a second time. Capital is equity, adjusted cash plus holdings
// marked at their last executed price, so an open position does not
// read as drawdown. Failures are logged and skipped, local state
// stays authoritative.
func (e *Engine) reconcile(ctx context.Context) {
	balance, err := e.client.ReadBalance(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("balance reconciliation failed")
		return
	}

	e.mu.Lock()
	adjusted := balance
	pendingPrice := make(map[string]float64, len(e.pending))
	for _, u := range e.pending {
		notional := u.Size * u.Price
		if u.Side == SideBuy {
			adjusted -= notional
		} else {
			adjusted += notional
		}
		pendingPrice[u.Symbol] = u.Price
	}
	e.mu.Unlock()

	e.portfolio.SetCash(adjusted)

	_, holdings := e.portfolio.Snapshot()
	equity := adjusted
	e.mu.Lock()
	for sym, qty := range holdings {
		price := e.lastPrice[sym]
		if price == 0 {
			// First trade on this symbol is still in flight.
			price = pendingPrice[sym]
		}
		equity += qty * price
	}
	e.mu.Unlock()
	e.risk.SyncCapital(equity)
}

// RestorePending loads journaled pending updates at startup. They are
// surfaced for operator review, not replayed.
func (e *Engine) RestorePending(ctx context.Context) ([]PendingUpdate, error) {
	if e.journal == nil {
		return nil, nil
	}
	updates, err := e.journal.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range updates {
		e.logger.Warn().
			Str("trade_id", u.TradeID).
			Str("symbol", u.Symbol).
			Str("side", string(u.Side)).
			Time("applied_at", u.AppliedAt).
			Msg("pending update found from previous run, manual review required")
	}
	return updates, nil
}

func (e *Engine) reject(sig Signal, class, reason string) {
	monitoring.SignalsRejected.WithLabelValues(class).Inc()
	if e.bus != nil {
		e.bus.PublishTradeRejected(sig.Symbol, string(sig.Side), reason)
	}
	e.logger.Warn().
		Str("trade_id", sig.ID).
		Str("symbol", sig.Symbol).
		Str("side", string(sig.Side)).
		Str("reason", reason).
		Msg("trade rejected")
}
