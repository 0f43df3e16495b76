package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/orb-scanner/internal/config"
	"github.com/yourusername/orb-scanner/internal/market"
	"github.com/yourusername/orb-scanner/internal/models"
)

// BacktestConfig holds the resolved scoring and replay settings
type BacktestConfig struct {
	Policies           []models.ExitPolicy
	ReplayWindow       market.Window
	ReplayInterval     models.Interval
	LookbackDays       int
	NextSessionDays    int
	FetchTimeout       time.Duration
	ResultsPath        string
	EquityChartPath    string
	PortfolioChartPath string
}

// FromConfig converts the app config into backtest settings
func FromConfig(cfg *config.Config) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("backtest config is required")
	}

	policies := make([]models.ExitPolicy, 0, len(cfg.Backtest.ExitPolicies))
	for _, raw := range cfg.Backtest.ExitPolicies {
		p, err := models.ParseExitPolicy(raw)
		if err != nil {
			return BacktestConfig{}, err
		}
		policies = append(policies, p)
	}

	window, err := market.ParseWindow(cfg.Backtest.ReplayWindowStart, cfg.Backtest.ReplayWindowEnd)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid replay window: %w", err)
	}

	bt := BacktestConfig{
		Policies:           policies,
		ReplayWindow:       window,
		ReplayInterval:     models.Interval(cfg.Backtest.ReplayInterval),
		LookbackDays:       cfg.Backtest.LookbackDays,
		NextSessionDays:    10,
		FetchTimeout:       cfg.FetchTimeout(),
		ResultsPath:        cfg.Path(cfg.Backtest.ResultsFile),
		EquityChartPath:    chartPath(cfg, cfg.Backtest.EquityChartFile),
		PortfolioChartPath: chartPath(cfg, cfg.Backtest.PortfolioChartFile),
	}
	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if len(b.Policies) == 0 {
		return fmt.Errorf("at least one exit policy is required")
	}
	if b.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be positive")
	}
	if _, err := b.ReplayInterval.Duration(); err != nil {
		return fmt.Errorf("invalid replay interval: %w", err)
	}
	if b.ReplayWindow.End <= b.ReplayWindow.Start {
		return fmt.Errorf("replay window must end after it starts")
	}
	return nil
}

// HasPolicy reports whether p is configured
func (b BacktestConfig) HasPolicy(p models.ExitPolicy) bool {
	for _, have := range b.Policies {
		if have == p {
			return true
		}
	}
	return false
}

func chartPath(cfg *config.Config, name string) string {
	if name == "" {
		return ""
	}
	return cfg.Path(name)
}
