package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validConfigPath   = "testdata/valid_config.yaml"
	partialConfigPath = "testdata/partial_config.yaml"
	missingConfigPath = "testdata/nonexistent_config.yaml"
)

func TestLoadConfigSuccess(t *testing.T) {
	t.Setenv("TEST_TELEGRAM_TOKEN", "123:abc")

	cfg, err := Load(validConfigPath)
	require.NoError(t, err)

	assert.Equal(t, "orb-scanner", cfg.App.Name)
	assert.Equal(t, "Asia/Kolkata", cfg.Market.Timezone)
	assert.Equal(t, "09:30", cfg.Market.WindowEnd)
	assert.Equal(t, []string{"2025-01-26", "2025-08-15"}, cfg.Market.Holidays)
	assert.InDelta(t, 0.1, cfg.Signal.BreakoutTolerancePct, 1e-9)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []string{"next_bar", "constrained_intraday"}, cfg.Backtest.ExitPolicies)
	assert.NoError(t, Validate(cfg))
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load(missingConfigPath)
	assert.Error(t, err)
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("ORB_APP_NAME", "override")
	t.Setenv("ORB_SIGNAL_STRIKE_STEP", "100")

	cfg, err := Load(validConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.App.Name)
	assert.InDelta(t, 100.0, cfg.Signal.StrikeStep, 1e-9)
}

func TestLoadWithDefaults(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := LoadWithDefaults(missingConfigPath)
		require.NoError(t, err)

		assert.Equal(t, "development", cfg.App.Environment)
		assert.Equal(t, "09:15", cfg.Market.WindowStart)
		assert.Equal(t, "09:35", cfg.Backtest.ReplayWindowEnd)
		assert.Equal(t, ".NS", cfg.Market.SymbolSuffix)
		assert.InDelta(t, 2.0, cfg.Signal.MomentumThresholdPct, 1e-9)
		assert.Equal(t, "last_telegram_message.txt", cfg.Telegram.FallbackFile)
		assert.Len(t, cfg.Backtest.ExitPolicies, 3)
		assert.NoError(t, Validate(cfg))
	})

	t.Run("partial file overrides selected keys", func(t *testing.T) {
		cfg, err := LoadWithDefaults(partialConfigPath)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.App.LogLevel)
		assert.InDelta(t, 1.5, cfg.Signal.MomentumThresholdPct, 1e-9)
		assert.InDelta(t, 0.1, cfg.Signal.BreakoutTolerancePct, 1e-9)
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ORB_DOTENV_PROBE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ORB_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "loaded", os.Getenv("ORB_DOTENV_PROBE"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := LoadWithDefaults(missingConfigPath)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "bad environment", mutate: func(c *Config) { c.App.Environment = "qa" }, wantErr: "development, staging, production"},
		{name: "bad log level", mutate: func(c *Config) { c.App.LogLevel = "trace" }, wantErr: "debug, info, warn, error"},
		{name: "bad clock", mutate: func(c *Config) { c.Market.WindowEnd = "9.30" }, wantErr: "HH:MM"},
		{name: "bad timezone", mutate: func(c *Config) { c.Market.Timezone = "Mars/Olympus" }, wantErr: "IANA timezone"},
		{name: "bad exit policy", mutate: func(c *Config) { c.Backtest.ExitPolicies = []string{"eod"} }, wantErr: "next_bar"},
		{name: "bad provider", mutate: func(c *Config) { c.DataSource.Provider = "bloomberg" }, wantErr: "yahoo, polygon"},
		{name: "window inverted", mutate: func(c *Config) { c.Market.WindowStart = "09:45" }, wantErr: "must be before end"},
		{name: "window outside session", mutate: func(c *Config) { c.Market.WindowStart = "09:00" }, wantErr: "within the trading session"},
		{name: "polygon without key", mutate: func(c *Config) { c.DataSource.Provider = "polygon" }, wantErr: "api_key"},
		{name: "negative tolerance", mutate: func(c *Config) { c.Signal.BreakoutTolerancePct = -1 }, wantErr: "numeric constraint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDelivery(t *testing.T) {
	cfg, err := LoadWithDefaults(missingConfigPath)
	require.NoError(t, err)

	err = ValidateDelivery(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.bot_token")
	assert.Contains(t, err.Error(), "telegram.chat_id")

	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "42"
	assert.NoError(t, ValidateDelivery(cfg))

	cfg.App.Environment = "production"
	cfg.Telegram.BotToken = "YOUR_TOKEN"
	assert.Error(t, ValidateDelivery(cfg))
}

func TestOverlaySecretsOnConfig(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.ChatID = "keep"

	overlaySecretsOnConfig(cfg, &SecretsOverlay{TelegramBotToken: "tok", PolygonAPIKey: "pk"})

	assert.Equal(t, "tok", cfg.Telegram.BotToken)
	assert.Equal(t, "keep", cfg.Telegram.ChatID)
	assert.Equal(t, "pk", cfg.DataSource.APIKey)
}

func TestHelpers(t *testing.T) {
	cfg, err := LoadWithDefaults(missingConfigPath)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "symbols.csv"), cfg.Path(cfg.Storage.SymbolsFile))
	assert.Equal(t, "/abs/file.csv", cfg.Path("/abs/file.csv"))
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 200*time.Millisecond, cfg.RequestDelay())
	assert.Equal(t, 10*time.Second, cfg.TelegramTimeout())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	offset, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, offset)
}
