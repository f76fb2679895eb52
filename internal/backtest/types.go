// Package backtest records emitted signals as paper trades, closes them
// under competing exit rules and aggregates win-rate statistics.
package backtest

import (
	"fmt"
	"strings"
	"time"
)

// Trade status values. A trade is active until exactly one exit rule
// fires; completed is terminal and its exit fields are frozen.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Exit reasons, in evaluation priority order
const (
	ExitTakeProfit = "kar_al"      // profit >= take-profit threshold
	ExitStopLoss   = "zarar_kes"   // profit <= stop-loss threshold
	ExitTimeout    = "zaman_asimi" // held past the holding limit
)

// Trade is one recorded paper trade. The engine exclusively owns these;
// callers only ever see copies.
type Trade struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Signal     string     `json:"signal"` // AL-family or SAT-family signal string
	Score      int        `json:"score"`  // 0-100 verdict score at entry
	EntryPrice float64    `json:"entry_price"`
	EntryDate  time.Time  `json:"date"`
	Status     string     `json:"status"`
	ExitPrice  float64    `json:"exit_price,omitempty"`
	ExitDate   *time.Time `json:"exit_date,omitempty"`
	ExitReason string     `json:"exit_reason,omitempty"`
	ProfitPct  float64    `json:"profit_pct"`
	DaysHeld   int        `json:"days_held"`
}

// IsSellFamily reports whether the recorded signal is a SAT-family
// (bearish) call.
func (t *Trade) IsSellFamily() bool {
	return strings.Contains(strings.ToUpper(t.Signal), "SAT")
}

// directionalProfitPct measures how well the call aged. SAT-family trades
// use (entry-current)/entry: this is directional call accuracy, not short
// position P&L — nothing in the system executes short sales.
func (t *Trade) directionalProfitPct(current float64) float64 {
	if t.EntryPrice == 0 {
		return 0
	}
	if t.IsSellFamily() {
		return (t.EntryPrice - current) / t.EntryPrice * 100
	}
	return (current - t.EntryPrice) / t.EntryPrice * 100
}

// Performance is the denormalized aggregate over completed trades. The
// trade history is the source of truth; this is recomputed in full after
// every state change.
type Performance struct {
	TotalSignals     int     `json:"total_signals"`
	ActiveSignals    int     `json:"active_signals"`
	CompletedSignals int     `json:"completed_signals"`
	WinRate          float64 `json:"win_rate"`    // % of completed with profit > 0
	AvgProfit        float64 `json:"avg_profit"`  // mean profit over completed
	AvgWin           float64 `json:"avg_win"`     // mean profit over winners
	AvgLoss          float64 `json:"avg_loss"`    // mean profit over losers
	BuyWinRate       float64 `json:"buy_win_rate"`
	SellWinRate      float64 `json:"sell_win_rate"`
	HighScoreWinRate float64 `json:"high_score_win_rate"` // completed with score >= 70
	TakeProfitCount  int     `json:"take_profit_count"`
	StopLossCount    int     `json:"stop_loss_count"`
	TimeoutCount     int     `json:"timeout_count"`
}

// Document is the persisted shape: the flat ordered trade history plus the
// cached performance snapshot.
type Document struct {
	Signals     []Trade     `json:"signals"`
	Performance Performance `json:"performance"`
}

// PersistenceError marks a storage failure during a mutating engine
// operation. Callers must treat it as retryable and alert-worthy: the
// in-memory state advanced but durability is not guaranteed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("backtest persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
