package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bist-signal-engine/internal/events"
)

// Config holds the exit-rule thresholds
type Config struct {
	TakeProfitPct float64 // close when directional profit reaches this, percent
	StopLossPct   float64 // close when directional loss reaches this, percent (positive number)
	MaxHoldDays   int     // close when held at least this many days
}

// DefaultConfig returns the standard 10% / -7% / 30 day rules
func DefaultConfig() Config {
	return Config{
		TakeProfitPct: 10,
		StopLossPct:   7,
		MaxHoldDays:   30,
	}
}

// Engine records signals as paper trades, advances them against price
// snapshots and maintains the aggregate performance snapshot.
//
// All mutating operations run under a single writer lock: UpdateSignals is
// a read-modify-recompute-write cycle that would lose closed trades under
// concurrent writers. Reads serve consistent copies under the same lock.
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	store  Store
	bus    *events.EventBus
	logger zerolog.Logger

	trades []Trade
	perf   Performance

	now func() time.Time
}

// NewEngine loads the persisted history and rebuilds the performance
// snapshot from it. bus may be nil.
func NewEngine(ctx context.Context, cfg Config, store Store, bus *events.EventBus, logger zerolog.Logger) (*Engine, error) {
	if cfg.TakeProfitPct <= 0 || cfg.StopLossPct <= 0 || cfg.MaxHoldDays <= 0 {
		return nil, fmt.Errorf("invalid backtest config: %+v", cfg)
	}

	trades, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trade history: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		store:  store,
		bus:    bus,
		logger: logger,
		trades: trades,
		now:    time.Now,
	}
	e.perf = computePerformance(trades)

	logger.Info().
		Int("trades", len(trades)).
		Int("active", e.perf.ActiveSignals).
		Msg("backtest engine loaded")

	return e, nil
}

// RecordSignal appends a new active paper trade. The engine enforces no
// symbol/day uniqueness; not double-recording is a documented caller
// obligation. A zero date means "now".
func (e *Engine) RecordSignal(ctx context.Context, symbol, signal string, score int, price float64, date time.Time) (Trade, error) {
	if symbol == "" {
		return Trade{}, fmt.Errorf("symbol is required")
	}
	if price <= 0 {
		return Trade{}, fmt.Errorf("entry price must be positive, got %.4f", price)
	}
	if date.IsZero() {
		date = e.now()
	}

	trade := Trade{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Signal:     signal,
		Score:      score,
		EntryPrice: price,
		EntryDate:  date,
		Status:     StatusActive,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Append(ctx, trade); err != nil {
		return Trade{}, &PersistenceError{Op: "record_signal", Err: err}
	}

	e.trades = append(e.trades, trade)
	e.perf = computePerformance(e.trades)
	if err := e.store.SavePerformance(ctx, e.perf); err != nil {
		return Trade{}, &PersistenceError{Op: "record_signal", Err: err}
	}

	e.logger.Info().
		Str("symbol", symbol).
		Str("signal", signal).
		Int("score", score).
		Float64("entry_price", price).
		Msg("paper trade recorded")

	if e.bus != nil {
		e.bus.PublishSignalRecorded(symbol, signal, score, price)
	}

	return trade, nil
}

// UpdateSignals evaluates every active trade whose symbol appears in the
// price map. Exit rules run in priority order, first match wins:
// take-profit, stop-loss, timeout. Symbols missing from the map are
// skipped this round and stay active. Returns the trades closed by this
// call.
func (e *Engine) UpdateSignals(ctx context.Context, prices map[string]float64) ([]Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := e.now()
	var closed []Trade

	for i := range e.trades {
		t := &e.trades[i]
		if t.Status != StatusActive {
			continue
		}
		price, ok := prices[t.Symbol]
		if !ok {
			continue
		}

		t.DaysHeld = int(today.Sub(t.EntryDate).Hours() / 24)
		t.ProfitPct = t.directionalProfitPct(price)

		reason := ""
		switch {
		case t.ProfitPct >= e.cfg.TakeProfitPct:
			reason = ExitTakeProfit
		case t.ProfitPct <= -e.cfg.StopLossPct:
			reason = ExitStopLoss
		case t.DaysHeld >= e.cfg.MaxHoldDays:
			reason = ExitTimeout
		}
		if reason == "" {
			continue
		}

		exitDate := today
		t.Status = StatusCompleted
		t.ExitPrice = price
		t.ExitDate = &exitDate
		t.ExitReason = reason
		closed = append(closed, *t)
	}

	if len(closed) == 0 {
		return nil, nil
	}

	for _, t := range closed {
		if err := e.store.MarkCompleted(ctx, t); err != nil {
			return closed, &PersistenceError{Op: "update_signals", Err: err}
		}
	}

	e.perf = computePerformance(e.trades)
	if err := e.store.SavePerformance(ctx, e.perf); err != nil {
		return closed, &PersistenceError{Op: "update_signals", Err: err}
	}

	for _, t := range closed {
		e.logger.Info().
			Str("symbol", t.Symbol).
			Str("exit_reason", t.ExitReason).
			Float64("profit_pct", t.ProfitPct).
			Int("days_held", t.DaysHeld).
			Msg("paper trade closed")
		if e.bus != nil {
			e.bus.PublishTradeClosed(t.Symbol, t.Signal, t.ExitReason,
				t.EntryPrice, t.ExitPrice, t.ProfitPct, t.DaysHeld)
		}
	}

	return closed, nil
}

// PerformanceStats returns the cached performance snapshot
func (e *Engine) PerformanceStats() Performance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.perf
}

// ActiveSignals returns copies of the trades still open, insertion order
func (e *Engine) ActiveSignals() []Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Trade, 0)
	for _, t := range e.trades {
		if t.Status == StatusActive {
			out = append(out, t)
		}
	}
	return out
}

// ActiveSymbols returns the distinct symbols with open trades, sorted
func (e *Engine) ActiveSymbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]bool)
	for _, t := range e.trades {
		if t.Status == StatusActive {
			seen[t.Symbol] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// RecentResults returns up to limit completed trades, most recent exit
// first.
func (e *Engine) RecentResults(limit int) []Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()

	completed := make([]Trade, 0)
	for _, t := range e.trades {
		if t.Status == StatusCompleted {
			completed = append(completed, t)
		}
	}
	// A completed trade without an exit date can only come from a
	// hand-edited document; sort it as oldest instead of panicking.
	sort.Slice(completed, func(i, j int) bool {
		di, dj := completed[i].ExitDate, completed[j].ExitDate
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return di.After(*dj)
	})
	if limit > 0 && len(completed) > limit {
		completed = completed[:limit]
	}
	return completed
}

// computePerformance rebuilds the aggregate from the full history
func computePerformance(trades []Trade) Performance {
	p := Performance{TotalSignals: len(trades)}

	var (
		wins, losses               int
		profitSum, winSum, lossSum float64
		buyTotal, buyWins          int
		sellTotal, sellWins        int
		highTotal, highWins        int
	)

	for _, t := range trades {
		if t.Status != StatusCompleted {
			p.ActiveSignals++
			continue
		}
		p.CompletedSignals++
		profitSum += t.ProfitPct

		won := t.ProfitPct > 0
		if won {
			wins++
			winSum += t.ProfitPct
		} else {
			losses++
			lossSum += t.ProfitPct
		}

		if t.IsSellFamily() {
			sellTotal++
			if won {
				sellWins++
			}
		} else {
			buyTotal++
			if won {
				buyWins++
			}
		}

		if t.Score >= 70 {
			highTotal++
			if won {
				highWins++
			}
		}

		switch t.ExitReason {
		case ExitTakeProfit:
			p.TakeProfitCount++
		case ExitStopLoss:
			p.StopLossCount++
		case ExitTimeout:
			p.TimeoutCount++
		}
	}

	if p.CompletedSignals > 0 {
		p.WinRate = float64(wins) / float64(p.CompletedSignals) * 100
		p.AvgProfit = profitSum / float64(p.CompletedSignals)
	}
	if wins > 0 {
		p.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		p.AvgLoss = lossSum / float64(losses)
	}
	if buyTotal > 0 {
		p.BuyWinRate = float64(buyWins) / float64(buyTotal) * 100
	}
	if sellTotal > 0 {
		p.SellWinRate = float64(sellWins) / float64(sellTotal) * 100
	}
	if highTotal > 0 {
		p.HighScoreWinRate = float64(highWins) / float64(highTotal) * 100
	}

	return p
}
