package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bist-signal-engine/internal/backtest"
)

// TradeStore implements backtest.Store on PostgreSQL
type TradeStore struct {
	db *DB
}

// NewTradeStore creates a trade store over an open pool
func NewTradeStore(db *DB) *TradeStore {
	return &TradeStore{db: db}
}

// LoadAll returns the full trade history in insertion order
func (s *TradeStore) LoadAll(ctx context.Context) ([]backtest.Trade, error) {
	query := `
		SELECT id, symbol, signal, score, entry_price, entry_date,
		       status, exit_price, exit_date, exit_reason, profit_pct, days_held
		FROM paper_trades
		ORDER BY seq ASC
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query paper trades: %w", err)
	}
	defer rows.Close()

	trades := []backtest.Trade{}
	for rows.Next() {
		var t backtest.Trade
		var exitPrice *float64
		var exitDate *time.Time
		var exitReason *string

		err := rows.Scan(
			&t.ID, &t.Symbol, &t.Signal, &t.Score, &t.EntryPrice, &t.EntryDate,
			&t.Status, &exitPrice, &exitDate, &exitReason, &t.ProfitPct, &t.DaysHeld,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper trade: %w", err)
		}

		if exitPrice != nil {
			t.ExitPrice = *exitPrice
		}
		t.ExitDate = exitDate
		if exitReason != nil {
			t.ExitReason = *exitReason
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating paper trades: %w", err)
	}
	return trades, nil
}

// Append inserts a new active trade
func (s *TradeStore) Append(ctx context.Context, t backtest.Trade) error {
	query := `
		INSERT INTO paper_trades (
			id, symbol, signal, score, entry_price, entry_date,
			status, profit_pct, days_held
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.Pool.Exec(ctx, query,
		t.ID, t.Symbol, t.Signal, t.Score, t.EntryPrice, t.EntryDate,
		t.Status, t.ProfitPct, t.DaysHeld,
	)
	if err != nil {
		return fmt.Errorf("failed to insert paper trade: %w", err)
	}
	return nil
}

// MarkCompleted freezes a completed trade's exit fields
func (s *TradeStore) MarkCompleted(ctx context.Context, t backtest.Trade) error {
	query := `
		UPDATE paper_trades
		SET status = $2, exit_price = $3, exit_date = $4, exit_reason = $5,
		    profit_pct = $6, days_held = $7
		WHERE id = $1 AND status = 'active'
	`

	tag, err := s.db.Pool.Exec(ctx, query,
		t.ID, t.Status, t.ExitPrice, t.ExitDate, t.ExitReason,
		t.ProfitPct, t.DaysHeld,
	)
	if err != nil {
		return fmt.Errorf("failed to complete paper trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trade %s not found or already completed", t.ID)
	}
	return nil
}

// SavePerformance upserts the single cached performance row
func (s *TradeStore) SavePerformance(ctx context.Context, p backtest.Performance) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode performance snapshot: %w", err)
	}

	query := `
		INSERT INTO paper_performance (id, snapshot, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET snapshot = $1, updated_at = NOW()
	`
	if _, err := s.db.Pool.Exec(ctx, query, snapshot); err != nil {
		return fmt.Errorf("failed to save performance snapshot: %w", err)
	}
	return nil
}
