package database

import (
	"context"
	"fmt"

	"solana-trading-bot/internal/engine"
)

// TradeStore persists committed trades
type TradeStore struct {
	db *DB
}

// NewTradeStore creates a ledger store backed by the shared pool
func NewTradeStore(db *DB) *TradeStore {
	return &TradeStore{db: db}
}

// RecordExecution writes one committed trade to the ledger
func (s *TradeStore) RecordExecution(ctx context.Context, r engine.Result) error {
	query := `
		INSERT INTO trades (trade_id, venue_ref, symbol, side, size, price, fee, pnl, mode, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (trade_id) DO NOTHING`

	_, err := s.db.Pool.Exec(ctx, query,
		r.TradeID, r.VenueRef, r.Symbol, string(r.Side), r.Size, r.Price,
		int64(r.Fee), r.PnL, string(r.Mode), r.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record trade %s: %w", r.TradeID, err)
	}
	return nil
}

// RecentTrades returns the newest trades, most recent first
func (s *TradeStore) RecentTrades(ctx context.Context, limit int) ([]engine.Result, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT trade_id, venue_ref, symbol, side, size, price, fee, pnl, mode, executed_at
		FROM trades
		ORDER BY executed_at DESC
		LIMIT $1`

	rows, err := s.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []engine.Result
	for rows.Next() {
		var r engine.Result
		var side, mode string
		var fee int64
		if err := rows.Scan(&r.TradeID, &r.VenueRef, &r.Symbol, &side, &r.Size, &r.Price, &fee, &r.PnL, &mode, &r.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		r.Side = engine.Side(side)
		r.Mode = engine.Mode(mode)
		r.Fee = uint64(fee)
		trades = append(trades, r)
	}
	return trades, rows.Err()
}

// SymbolPnL sums realized PnL per symbol
func (s *TradeStore) SymbolPnL(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT symbol, COALESCE(SUM(pnl), 0) FROM trades GROUP BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pnl: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var pnl float64
		if err := rows.Scan(&symbol, &pnl); err != nil {
			return nil, fmt.Errorf("failed to scan pnl: %w", err)
		}
		out[symbol] = pnl
	}
	return out, rows.Err()
}

var _ engine.Recorder = (*TradeStore)(nil)
