package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ServerConfig    ServerConfig    `json:"server"`
	DatabaseConfig  DatabaseConfig  `json:"database"`
	RedisConfig     RedisConfig     `json:"redis"`
	VaultConfig     VaultConfig     `json:"vault"`
	ProviderConfig  ProviderConfig  `json:"provider"`
	BacktestConfig  BacktestConfig  `json:"backtest"`
	SchedulerConfig SchedulerConfig `json:"scheduler"`
	LoggingConfig   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`    // Seconds
	WriteTimeout    int    `json:"write_timeout"`   // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for price and analysis caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path prefix for provider credentials
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// ProviderConfig holds market data provider configuration
type ProviderConfig struct {
	Name           string   `json:"name"`
	BaseURL        string   `json:"base_url"`
	IndexSymbol    string   `json:"index_symbol"`
	Symbols        []string `json:"symbols"`
	RequestTimeout int      `json:"request_timeout"` // Seconds
	MaxRetryTime   int      `json:"max_retry_time"`  // Seconds of exponential backoff
}

// BacktestConfig holds paper trade exit thresholds
type BacktestConfig struct {
	DataFile       string  `json:"data_file"`
	TakeProfitPct  float64 `json:"take_profit_pct"`
	StopLossPct    float64 `json:"stop_loss_pct"`
	MaxHoldDays    int     `json:"max_hold_days"`
	UsePostgres    bool    `json:"use_postgres"`
}

// SchedulerConfig holds cron schedules for background jobs
type SchedulerConfig struct {
	Enabled            bool   `json:"enabled"`
	PriceUpdateCron    string `json:"price_update_cron"`
	MarketConditionCron string `json:"market_condition_cron"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // DEBUG, INFO, WARN, ERROR
	Output string `json:"output"` // stdout, stderr, or file path
	Pretty bool   `json:"pretty"` // Human-readable console output
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Provider credentials are NOT read from environment; they live in Vault.
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultStr(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultStr(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", defaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", defaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvBoolOrDefault("DB_ENABLED", cfg.DatabaseConfig.Enabled)
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultStr(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultStr(cfg.DatabaseConfig.User, "postgres"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Name = getEnvOrDefault("DB_NAME", defaultStr(cfg.DatabaseConfig.Name, "bist_signals"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", defaultStr(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultStr(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	// Vault config
	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", defaultStr(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", defaultStr(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", defaultStr(cfg.VaultConfig.SecretPath, "signal-engine/providers"))
	cfg.VaultConfig.TLSEnabled = getEnvBoolOrDefault("VAULT_TLS_ENABLED", cfg.VaultConfig.TLSEnabled)

	// Provider config
	cfg.ProviderConfig.Name = getEnvOrDefault("PROVIDER_NAME", defaultStr(cfg.ProviderConfig.Name, "bist"))
	cfg.ProviderConfig.BaseURL = getEnvOrDefault("PROVIDER_BASE_URL", cfg.ProviderConfig.BaseURL)
	cfg.ProviderConfig.IndexSymbol = getEnvOrDefault("PROVIDER_INDEX_SYMBOL", defaultStr(cfg.ProviderConfig.IndexSymbol, "XU100"))
	if symbols := os.Getenv("PROVIDER_SYMBOLS"); symbols != "" {
		cfg.ProviderConfig.Symbols = splitAndTrim(symbols)
	}
	cfg.ProviderConfig.RequestTimeout = getEnvIntOrDefault("PROVIDER_REQUEST_TIMEOUT", defaultInt(cfg.ProviderConfig.RequestTimeout, 15))
	cfg.ProviderConfig.MaxRetryTime = getEnvIntOrDefault("PROVIDER_MAX_RETRY_TIME", defaultInt(cfg.ProviderConfig.MaxRetryTime, 30))

	// Backtest config
	cfg.BacktestConfig.DataFile = getEnvOrDefault("BACKTEST_DATA_FILE", defaultStr(cfg.BacktestConfig.DataFile, "backtest_results.json"))
	cfg.BacktestConfig.TakeProfitPct = getEnvFloatOrDefault("BACKTEST_TAKE_PROFIT_PCT", defaultFloat(cfg.BacktestConfig.TakeProfitPct, 10.0))
	cfg.BacktestConfig.StopLossPct = getEnvFloatOrDefault("BACKTEST_STOP_LOSS_PCT", defaultFloat(cfg.BacktestConfig.StopLossPct, 7.0))
	cfg.BacktestConfig.MaxHoldDays = getEnvIntOrDefault("BACKTEST_MAX_HOLD_DAYS", defaultInt(cfg.BacktestConfig.MaxHoldDays, 30))
	cfg.BacktestConfig.UsePostgres = getEnvBoolOrDefault("BACKTEST_USE_POSTGRES", cfg.BacktestConfig.UsePostgres)

	// Scheduler config
	cfg.SchedulerConfig.Enabled = getEnvBoolOrDefault("SCHEDULER_ENABLED", cfg.SchedulerConfig.Enabled)
	cfg.SchedulerConfig.PriceUpdateCron = getEnvOrDefault("SCHEDULER_PRICE_CRON", defaultStr(cfg.SchedulerConfig.PriceUpdateCron, "*/5 9-18 * * 1-5"))
	cfg.SchedulerConfig.MarketConditionCron = getEnvOrDefault("SCHEDULER_CONDITION_CRON", defaultStr(cfg.SchedulerConfig.MarketConditionCron, "0 * * * *"))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultStr(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultStr(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.Pretty = getEnvBoolOrDefault("LOG_PRETTY", cfg.LoggingConfig.Pretty)
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}

func defaultStr(current, fallback string) string {
	if current != "" {
		return current
	}
	return fallback
}

func defaultInt(current, fallback int) int {
	if current != 0 {
		return current
	}
	return fallback
}

func defaultFloat(current, fallback float64) float64 {
	if current != 0 {
		return current
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		DatabaseConfig: DatabaseConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "bist_signals",
			SSLMode: "disable",
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		ProviderConfig: ProviderConfig{
			Name:           "bist",
			IndexSymbol:    "XU100",
			Symbols:        []string{"THYAO", "GARAN", "ASELS", "AKBNK", "EREGL"},
			RequestTimeout: 15,
			MaxRetryTime:   30,
		},
		BacktestConfig: BacktestConfig{
			DataFile:      "backtest_results.json",
			TakeProfitPct: 10.0,
			StopLossPct:   7.0,
			MaxHoldDays:   30,
		},
		SchedulerConfig: SchedulerConfig{
			Enabled:             true,
			PriceUpdateCron:     "*/5 9-18 * * 1-5",
			MarketConditionCron: "0 * * * *",
		},
		LoggingConfig: LoggingConfig{
			Level:  "INFO",
			Output: "stdout",
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
