package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. ORB_TELEGRAM_BOT_TOKEN
const EnvPrefix = "ORB"

const defaultConfigPath = "config/config.yaml"

// LoadDotEnv loads credentials from a .env file when one is present.
// A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing config file is tolerated; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "orb-scanner")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("market.timezone", "Asia/Kolkata")
	v.SetDefault("market.session_open", "09:15")
	v.SetDefault("market.session_close", "15:30")
	v.SetDefault("market.window_start", "09:15")
	v.SetDefault("market.window_end", "09:30")
	v.SetDefault("market.symbol_suffix", ".NS")

	v.SetDefault("signal.breakout_tolerance_pct", 0.1)
	v.SetDefault("signal.momentum_threshold_pct", 2.0)
	v.SetDefault("signal.strike_step", 50)

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.symbols_file", "symbols.csv")
	v.SetDefault("storage.range_cache_file", "opening_range.csv")
	v.SetDefault("storage.sent_ledger_file", "sent_signals.csv")
	v.SetDefault("storage.history_file", "signal_history.csv")

	v.SetDefault("data_source.provider", "yahoo")
	v.SetDefault("data_source.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("data_source.intraday_interval", "1m")
	v.SetDefault("data_source.daily_lookback_days", 7)
	v.SetDefault("data_source.fetch_timeout_seconds", 15)
	v.SetDefault("data_source.retry_attempts", 3)
	v.SetDefault("data_source.rate_limit_per_second", 5)
	v.SetDefault("data_source.request_delay_ms", 200)
	v.SetDefault("data_source.cache_ttl_seconds", 300)
	v.SetDefault("data_source.user_agent", "Mozilla/5.0 (compatible; orb-scanner)")

	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout_seconds", 10)
	v.SetDefault("telegram.fallback_file", "last_telegram_message.txt")

	v.SetDefault("scheduler.cycle_spec", "*/5 9-15 * * 1-5")

	v.SetDefault("backtest.exit_policies", []string{"next_bar", "next_session_close", "constrained_intraday"})
	v.SetDefault("backtest.replay_window_start", "09:15")
	v.SetDefault("backtest.replay_window_end", "09:35")
	v.SetDefault("backtest.replay_interval", "5m")
	v.SetDefault("backtest.lookback_days", 30)
	v.SetDefault("backtest.results_file", "backtest_results.csv")
	v.SetDefault("backtest.equity_chart_file", "equity_curve.png")
	v.SetDefault("backtest.portfolio_chart_file", "portfolio_curve.png")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}
