package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/orb-scanner/internal/backtest"
	"github.com/yourusername/orb-scanner/internal/datasource"
	"github.com/yourusername/orb-scanner/internal/market"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/repository"
)

var (
	historyPath   string
	policyNames   []string
	summaryPath   string
	replaySymbols []string
	replayAsOf    string
	skipCharts    bool
	equityCSV     string
)

func init() {
	for _, c := range []*cobra.Command{backtestCmd, replayCmd} {
		c.Flags().StringSliceVarP(&policyNames, "policy", "p", nil, "Exit policies to score (next_bar, next_session_close, constrained_intraday)")
		c.Flags().StringVar(&summaryPath, "summary", "", "Write the per-policy summary CSV to this path")
		c.Flags().BoolVar(&skipCharts, "no-charts", false, "Do not render the equity and portfolio charts")
		c.Flags().StringVar(&equityCSV, "equity-csv", "", "Write the per-trade equity curve CSV to this path")
	}
	backtestCmd.Flags().StringVarP(&historyPath, "file", "f", "", "Emission history CSV to score (defaults to the configured history file)")
	replayCmd.Flags().StringSliceVarP(&replaySymbols, "symbols", "s", nil, "Symbols to replay (defaults to the symbols file)")
	replayCmd.Flags().StringVar(&replayAsOf, "as-of", "", "Replay the trading days before this date (YYYY-MM-DD, defaults to today)")
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Score the emission history against forward prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, engine, err := newEngine()
		if err != nil {
			return err
		}
		defer deps.Close()

		entries, err := readHistory(deps.repos)
		if err != nil {
			return err
		}

		run, err := engine.ScoreHistory(cmd.Context(), entries)
		if err != nil {
			return fmt.Errorf("backtest failed: %w", err)
		}
		return publishRun(run, engine.Config(), deps.repos)
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay the opening range rule over recent intraday bars",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, engine, err := newEngine()
		if err != nil {
			return err
		}
		defer deps.Close()

		symbols := replaySymbols
		if len(symbols) == 0 {
			symbols, err = datasource.LoadSymbols(cfg.Path(cfg.Storage.SymbolsFile), cfg.Market.SymbolSuffix)
			if err != nil {
				return fmt.Errorf("failed to load symbols: %w", err)
			}
		}

		asOf, err := replayEnd(calendar, replayAsOf, time.Now())
		if err != nil {
			return err
		}

		run, err := engine.Replay(cmd.Context(), symbols, asOf)
		if err != nil {
			return fmt.Errorf("replay failed: %w", err)
		}
		return publishRun(run, engine.Config(), deps.repos)
	},
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render the equity and portfolio charts from stored backtest results",
	RunE: func(cmd *cobra.Command, args []string) error {
		btConfig, err := backtest.FromConfig(cfg)
		if err != nil {
			return err
		}
		repos, err := repository.NewRepositories(cfg, calendar.Location())
		if err != nil {
			return err
		}
		results, err := repos.BacktestResult.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read backtest results: %w", err)
		}
		return renderCharts(cmd.Context(), primaryResults(results, btConfig), btConfig)
	},
}

func newEngine() (*dependencies, *backtest.Engine, error) {
	btConfig, err := backtest.FromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if len(policyNames) > 0 {
		policies := make([]models.ExitPolicy, 0, len(policyNames))
		for _, name := range policyNames {
			p, err := models.ParseExitPolicy(name)
			if err != nil {
				return nil, nil, err
			}
			policies = append(policies, p)
		}
		btConfig.Policies = policies
	}

	deps, err := setupDependencies()
	if err != nil {
		return nil, nil, err
	}

	engine, err := backtest.NewEngine(btConfig, deps.cached, calendar, deps.strategy, appLog)
	if err != nil {
		deps.Close()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return deps, engine, nil
}

func readHistory(repos *repository.Repositories) ([]models.EmissionLogEntry, error) {
	if historyPath == "" {
		entries, err := repos.History.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read emission history: %w", err)
		}
		return entries, nil
	}

	f, err := os.Open(historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	entries, err := repository.ReadHistory(f, calendar.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", historyPath, err)
	}
	return entries, nil
}

func publishRun(run *backtest.Run, btConfig backtest.BacktestConfig, repos *repository.Repositories) error {
	fmt.Println(backtest.GenerateConsoleReport(run))

	if err := repos.BacktestResult.Write(run.Results); err != nil {
		return fmt.Errorf("failed to write backtest results: %w", err)
	}
	appLog.WithField("path", btConfig.ResultsPath).Info("Backtest results written")

	if summaryPath != "" {
		if err := backtest.GenerateCSVExport(run, summaryPath); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	charted := primaryResults(run.Results, btConfig)
	curve := backtest.BuildEquityCurve(charted)
	appLog.WithFields(logrus.Fields{
		"policy":       btConfig.Policies[0],
		"final_pnl":    curve.Final(),
		"max_drawdown": curve.MaxDrawdown(),
		"volatility":   curve.GetVolatility(),
	}).Info("Equity curve")
	if equityCSV != "" {
		if err := os.WriteFile(equityCSV, []byte(curve.ToCSV()), 0o644); err != nil {
			return fmt.Errorf("failed to write equity curve: %w", err)
		}
	}

	if skipCharts {
		return nil
	}
	return renderCharts(context.Background(), charted, btConfig)
}

// primaryResults keeps the trades of the first configured policy so the
// curves do not count one signal once per policy.
func primaryResults(results []models.BacktestResult, btConfig backtest.BacktestConfig) []models.BacktestResult {
	if len(btConfig.Policies) == 0 {
		return results
	}
	return backtest.FilterPolicy(results, btConfig.Policies[0])
}

func renderCharts(ctx context.Context, results []models.BacktestResult, btConfig backtest.BacktestConfig) error {
	charts := []struct {
		path   string
		render func([]models.BacktestResult, string) error
	}{
		{btConfig.EquityChartPath, backtest.RenderEquityCurve},
		{btConfig.PortfolioChartPath, backtest.RenderPortfolioCurve},
	}

	var rendered []string
	for _, c := range charts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.path == "" {
			continue
		}
		if err := c.render(results, c.path); err != nil {
			if errors.Is(err, models.ErrNoData) {
				appLog.Warn("No trades to chart")
				return nil
			}
			return fmt.Errorf("failed to render %s: %w", c.path, err)
		}
		rendered = append(rendered, c.path)
	}
	if len(rendered) > 0 {
		appLog.WithField("charts", strings.Join(rendered, ", ")).Info("Charts rendered")
	}
	return nil
}

// replayEnd returns the last trading day strictly before raw (or now when raw
// is empty), so a replay never scores a partial session.
func replayEnd(cal *market.Calendar, raw string, now time.Time) (time.Time, error) {
	day := now
	if raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, cal.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --as-of date: %w", err)
		}
		day = parsed
	}
	return cal.PreviousTradingDay(day), nil
}
