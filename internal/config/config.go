// Package config provides configuration management for the ORB scanner.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Market     MarketConfig     `mapstructure:"market" validate:"required"`
	Signal     SignalConfig     `mapstructure:"signal" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"data_source" validate:"required"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// MarketConfig describes the exchange session and the opening window
type MarketConfig struct {
	Timezone     string   `mapstructure:"timezone" validate:"required,timezone"`
	SessionOpen  string   `mapstructure:"session_open" validate:"required,clock"`
	SessionClose string   `mapstructure:"session_close" validate:"required,clock"`
	WindowStart  string   `mapstructure:"window_start" validate:"required,clock"`
	WindowEnd    string   `mapstructure:"window_end" validate:"required,clock"`
	Holidays     []string `mapstructure:"holidays" validate:"omitempty,dive,datetime=2006-01-02"`
	SymbolSuffix string   `mapstructure:"symbol_suffix"`
}

// SignalConfig holds the breakout evaluator parameters
type SignalConfig struct {
	BreakoutTolerancePct float64 `mapstructure:"breakout_tolerance_pct" validate:"gte=0,lt=100"`
	MomentumThresholdPct float64 `mapstructure:"momentum_threshold_pct" validate:"gte=0,lt=100"`
	StrikeStep           float64 `mapstructure:"strike_step" validate:"required,gt=0"`
}

// StorageConfig names the flat files the pipeline reads and appends to
type StorageConfig struct {
	DataDir        string `mapstructure:"data_dir" validate:"required"`
	SymbolsFile    string `mapstructure:"symbols_file" validate:"required"`
	RangeCacheFile string `mapstructure:"range_cache_file" validate:"required"`
	SentLedgerFile string `mapstructure:"sent_ledger_file" validate:"required"`
	HistoryFile    string `mapstructure:"history_file" validate:"required"`
}

// DataSourceConfig represents the candle provider configuration
type DataSourceConfig struct {
	Provider            string  `mapstructure:"provider" validate:"required,barsource"`
	BaseURL             string  `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey              string  `mapstructure:"api_key"`
	IntradayInterval    string  `mapstructure:"intraday_interval" validate:"required,oneof=1m 5m 15m"`
	DailyLookbackDays   int     `mapstructure:"daily_lookback_days" validate:"required,gt=0"`
	FetchTimeoutSeconds int     `mapstructure:"fetch_timeout_seconds" validate:"required,gt=0"`
	RetryAttempts       int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimitPerSecond  float64 `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	RequestDelayMS      int     `mapstructure:"request_delay_ms" validate:"gte=0"`
	CacheTTLSeconds     int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	UserAgent           string  `mapstructure:"user_agent"`
}

// TelegramConfig represents the notification sink configuration
type TelegramConfig struct {
	BotToken       string `mapstructure:"bot_token"`
	ChatID         string `mapstructure:"chat_id"`
	APIURL         string `mapstructure:"api_url" validate:"omitempty,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
	FallbackFile   string `mapstructure:"fallback_file"`
}

// SchedulerConfig holds the cron expressions of the live loop
type SchedulerConfig struct {
	CycleSpec string `mapstructure:"cycle_spec" validate:"required"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	ExitPolicies       []string `mapstructure:"exit_policies" validate:"required,min=1,dive,exitpolicy"`
	ReplayWindowStart  string   `mapstructure:"replay_window_start" validate:"required,clock"`
	ReplayWindowEnd    string   `mapstructure:"replay_window_end" validate:"required,clock"`
	ReplayInterval     string   `mapstructure:"replay_interval" validate:"required,oneof=1m 5m 15m"`
	LookbackDays       int      `mapstructure:"lookback_days" validate:"required,gt=0"`
	ResultsFile        string   `mapstructure:"results_file" validate:"required"`
	EquityChartFile    string   `mapstructure:"equity_chart_file"`
	PortfolioChartFile string   `mapstructure:"portfolio_chart_file"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Location resolves the configured exchange timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Market.Timezone, err)
	}
	return loc, nil
}

// Path joins a storage file name onto the data directory.
// Absolute names are returned unchanged.
func (c *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Storage.DataDir, name)
}

// FetchTimeout returns the bounded timeout for a single provider call
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.DataSource.FetchTimeoutSeconds) * time.Second
}

// RequestDelay returns the pacing interval between per-symbol requests
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.DataSource.RequestDelayMS) * time.Millisecond
}

// CacheTTL returns how long fetched bars are reused
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.DataSource.CacheTTLSeconds) * time.Second
}

// TelegramTimeout returns the delivery timeout, defaulting to ten seconds
func (c *Config) TelegramTimeout() time.Duration {
	if c.Telegram.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Telegram.TimeoutSeconds) * time.Second
}
