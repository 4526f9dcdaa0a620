// Package config loads the application configuration from YAML with
// environment variable overrides.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for backlab.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Alpaca    Alpaca          `yaml:"alpaca"`
	Logging   Logging         `yaml:"logging"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Autotrade AutotradeConfig `yaml:"autotrade"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	CSVDir     string `yaml:"csv_dir"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	DataURL         string `yaml:"data_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// BacktestConfig defines simulation capital and sizing parameters.
type BacktestConfig struct {
	InitialCapital   float64        `yaml:"initial_capital"`
	PositionFraction float64        `yaml:"position_fraction"`
	Workers          int            `yaml:"workers"`
	Strategy         StrategyConfig `yaml:"strategy"`
}

// StrategyConfig holds tunable parameters for the built-in strategies.
type StrategyConfig struct {
	ShortPeriod int     `yaml:"short_period"`
	LongPeriod  int     `yaml:"long_period"`
	RSIPeriod   int     `yaml:"rsi_period"`
	Oversold    float64 `yaml:"oversold"`
	Overbought  float64 `yaml:"overbought"`
}

// AutotradeConfig controls the scheduled watchlist scanner.
type AutotradeConfig struct {
	Watchlist           []string `yaml:"watchlist"`
	Strategy            string   `yaml:"strategy"`
	ScanIntervalMinutes int      `yaml:"scan_interval_minutes"`
	MaxTradesPerDay     int      `yaml:"max_trades_per_day"`
	MaxDailyLoss        float64  `yaml:"max_daily_loss"`
	StopLossPercent     float64  `yaml:"stop_loss_percent"`
	TargetPercent       float64  `yaml:"target_percent"`
	LookbackDays        int      `yaml:"lookback_days"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by
	// the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
