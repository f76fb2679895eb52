// Package database provides the PostgreSQL-backed trade store.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// NewDB creates a new database connection pool and verifies connectivity
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// RunMigrations creates the paper-trade tables
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS paper_trades (
			id UUID PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			signal VARCHAR(20) NOT NULL,
			score INT NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			entry_date TIMESTAMP NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			exit_price DECIMAL(20, 8),
			exit_date TIMESTAMP,
			exit_reason VARCHAR(20),
			profit_pct DECIMAL(10, 4) NOT NULL DEFAULT 0,
			days_held INT NOT NULL DEFAULT 0,
			seq BIGSERIAL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_trades_symbol ON paper_trades(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_trades_status ON paper_trades(status)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_trades_seq ON paper_trades(seq)`,

		// Single-row cache of the derived aggregate; the trade history is
		// the source of truth.
		`CREATE TABLE IF NOT EXISTS paper_performance (
			id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			snapshot JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
