package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bist-signal-engine/config"
	"bist-signal-engine/internal/api"
	"bist-signal-engine/internal/backtest"
	"bist-signal-engine/internal/cache"
	"bist-signal-engine/internal/database"
	"bist-signal-engine/internal/events"
	"bist-signal-engine/internal/logging"
	"bist-signal-engine/internal/marketdata"
	"bist-signal-engine/internal/scheduler"
	"bist-signal-engine/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Output: cfg.LoggingConfig.Output,
		Pretty: cfg.LoggingConfig.Pretty,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := events.NewEventBus()

	// Credential store
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("vault client init failed")
	}

	// Market data provider chain: HTTP fetch -> cache -> retry
	provider := buildProvider(ctx, cfg, vaultClient, logger)

	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Warn().Err(err).Msg("cache unavailable, continuing without it")
			cacheService = nil
		} else {
			defer cacheService.Close()
			provider = marketdata.NewCachedProvider(provider, cacheService, logger)
		}
	}

	runServer(ctx, cfg, provider, eventBus, cacheService, logger)
}

// buildProvider assembles the outermost provider the engines consume
func buildProvider(ctx context.Context, cfg *config.Config, vaultClient *vault.Client, logger zerolog.Logger) marketdata.Provider {
	apiKey := ""
	if creds, err := vaultClient.GetCredentials(ctx, cfg.ProviderConfig.Name); err == nil {
		apiKey = creds.APIKey
	} else if vaultClient.IsEnabled() {
		logger.Warn().Err(err).Msg("provider credentials unavailable, using public endpoints")
	}

	var provider marketdata.Provider = marketdata.NewHTTPProvider(marketdata.HTTPConfig{
		BaseURL: cfg.ProviderConfig.BaseURL,
		APIKey:  apiKey,
		Timeout: time.Duration(cfg.ProviderConfig.RequestTimeout) * time.Second,
		Logger:  logger,
	})

	return marketdata.WithRetry(provider,
		time.Duration(cfg.ProviderConfig.MaxRetryTime)*time.Second, logger)
}

// runServer wires the stores, engine, scheduler and HTTP server, then
// blocks until shutdown.
func runServer(ctx context.Context, cfg *config.Config, provider marketdata.Provider, eventBus *events.EventBus, cacheService *cache.CacheService, logger zerolog.Logger) {
	var db *database.DB
	var store backtest.Store

	if cfg.BacktestConfig.UsePostgres && cfg.DatabaseConfig.Enabled {
		var err error
		db, err = database.NewDB(ctx, database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Name,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		store = database.NewTradeStore(db)
		logger.Info().Msg("using postgres trade store")
	} else {
		fileStore, err := backtest.NewFileStore(cfg.BacktestConfig.DataFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("file store init failed")
		}
		store = fileStore
		logger.Info().Str("file", cfg.BacktestConfig.DataFile).Msg("using file trade store")
	}

	engine, err := backtest.NewEngine(ctx, backtest.Config{
		TakeProfitPct: cfg.BacktestConfig.TakeProfitPct,
		StopLossPct:   cfg.BacktestConfig.StopLossPct,
		MaxHoldDays:   cfg.BacktestConfig.MaxHoldDays,
	}, store, eventBus, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest engine init failed")
	}

	var sched *scheduler.Scheduler
	if cfg.SchedulerConfig.Enabled {
		sched = scheduler.New(scheduler.Config{
			PriceUpdateCron:     cfg.SchedulerConfig.PriceUpdateCron,
			MarketConditionCron: cfg.SchedulerConfig.MarketConditionCron,
			IndexSymbol:         cfg.ProviderConfig.IndexSymbol,
		}, engine, provider, eventBus, logger)

		if err := sched.Start(); err != nil {
			logger.Fatal().Err(err).Msg("scheduler start failed")
		}
	}

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ReadTimeout:    cfg.ServerConfig.ReadTimeout,
		WriteTimeout:   cfg.ServerConfig.WriteTimeout,
		ProductionMode: cfg.LoggingConfig.Level != "DEBUG",
		IndexSymbol:    cfg.ProviderConfig.IndexSymbol,
	}, engine, provider, eventBus, db, cacheService, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}
