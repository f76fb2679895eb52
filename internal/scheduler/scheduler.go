// Package scheduler runs the recurring price-update and market-condition
// jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"bist-signal-engine/internal/backtest"
	"bist-signal-engine/internal/events"
	"bist-signal-engine/internal/marketdata"
	"bist-signal-engine/internal/regime"
)

// Config holds the cron expressions for the background jobs
type Config struct {
	PriceUpdateCron     string
	MarketConditionCron string
	IndexSymbol         string
	JobTimeout          time.Duration
}

// Scheduler drives the paper-trade engine from scheduled price snapshots
// and keeps the market-condition classification fresh.
type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	engine   *backtest.Engine
	provider marketdata.Provider
	analyzer *regime.Analyzer
	bus      *events.EventBus
	logger   zerolog.Logger
}

// New creates a scheduler. The provider should already carry retry and
// cache wrappers.
func New(cfg Config, engine *backtest.Engine, provider marketdata.Provider, bus *events.EventBus, logger zerolog.Logger) *Scheduler {
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if cfg.IndexSymbol == "" {
		cfg.IndexSymbol = "XU100"
	}

	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		engine:   engine,
		provider: provider,
		analyzer: regime.NewAnalyzer(),
		bus:      bus,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if s.cfg.PriceUpdateCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.PriceUpdateCron, s.runPriceUpdate); err != nil {
			return err
		}
	}

	if s.cfg.MarketConditionCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.MarketConditionCron, s.runMarketCondition); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info().
		Str("price_cron", s.cfg.PriceUpdateCron).
		Str("condition_cron", s.cfg.MarketConditionCron).
		Msg("scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

// runPriceUpdate fetches a snapshot for all active symbols and advances
// the paper trades against it.
func (s *Scheduler) runPriceUpdate() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	symbols := s.engine.ActiveSymbols()
	if len(symbols) == 0 {
		return
	}

	prices, err := s.provider.PriceSnapshot(ctx, symbols)
	if err != nil {
		s.logger.Error().Err(err).Msg("price snapshot failed")
		s.bus.PublishError("scheduler", "price snapshot failed", err)
		return
	}

	closed, err := s.engine.UpdateSignals(ctx, prices)
	if err != nil {
		s.logger.Error().Err(err).Msg("signal update failed")
		s.bus.PublishError("scheduler", "signal update failed", err)
		return
	}

	if len(closed) > 0 {
		s.logger.Info().
			Int("closed", len(closed)).
			Int("checked", len(prices)).
			Msg("paper trades closed")
	}
}

// runMarketCondition reclassifies the broad index and publishes the result
func (s *Scheduler) runMarketCondition() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	bars, err := s.provider.IndexBars(ctx, s.cfg.IndexSymbol, 200)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", s.cfg.IndexSymbol).Msg("index bars fetch failed")
		s.bus.PublishError("scheduler", "index bars fetch failed", err)
		return
	}

	cond := s.analyzer.Classify(bars)
	s.bus.PublishMarketCondition(cond.Condition, cond.Strength, string(cond.Regime))

	s.logger.Info().
		Str("condition", cond.Condition).
		Float64("strength", cond.Strength).
		Str("regime", string(cond.Regime)).
		Msg("market condition updated")
}
