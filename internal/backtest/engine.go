// Package backtest scores historical opening range signals under exit policies.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/datasource"
	"github.com/yourusername/orb-scanner/internal/logger"
	"github.com/yourusername/orb-scanner/internal/market"
	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/strategy"
)

const (
	ModeHistory = "history"
	ModeReplay  = "replay"
)

// Run is the outcome of one backtest
type Run struct {
	ID        string                  `json:"id"`
	Mode      string                  `json:"mode"`
	StartedAt time.Time               `json:"started_at"`
	Duration  time.Duration           `json:"duration"`
	Results   []models.BacktestResult `json:"results"`
	// Excluded counts signal and policy pairs without forward data
	Excluded  int       `json:"excluded"`
	Summaries []Summary `json:"summaries"`
}

// Engine orchestrates backtesting runs
type Engine struct {
	config   BacktestConfig
	source   datasource.BarSource
	calendar *market.Calendar
	strategy strategy.Strategy
	audit    *logger.AuditLogger
	logger   *logrus.Logger
}

// NewEngine creates a new backtesting engine. strat is only needed for replay.
func NewEngine(cfg BacktestConfig, source datasource.BarSource, calendar *market.Calendar, strat strategy.Strategy, log *logrus.Logger) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("bar source is required")
	}
	if calendar == nil {
		return nil, fmt.Errorf("market calendar is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	if cfg.NextSessionDays <= 0 {
		cfg.NextSessionDays = 10
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config:   cfg,
		source:   source,
		calendar: calendar,
		strategy: strat,
		audit:    logger.NewAuditLogger(log),
		logger:   log,
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() BacktestConfig {
	return e.config
}

// ScoreHistory scores recorded signals under every configured policy.
// Signals without forward data are excluded rather than counted as losses.
func (e *Engine) ScoreHistory(ctx context.Context, entries []models.EmissionLogEntry) (*Run, error) {
	run := e.newRun(ModeHistory)
	e.logger.WithFields(logrus.Fields{"run_id": run.ID, "signals": len(entries)}).Info("Starting backtest run")

	groups := make(map[string][]models.EmissionLogEntry)
	var order []string
	for _, entry := range entries {
		key := entry.Symbol + "|" + entry.SessionDate.Format(models.DateLayout)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entry)
	}

	for _, key := range order {
		if err := ctx.Err(); err != nil {
			metrics.RecordBacktestRun(run.Mode, "failure", time.Since(run.StartedAt).Seconds())
			return nil, err
		}
		group := groups[key]
		data, err := e.forwardData(ctx, group[0].Symbol, group[0].SessionDate)
		if err != nil {
			if ctx.Err() != nil {
				metrics.RecordBacktestRun(run.Mode, "failure", time.Since(run.StartedAt).Seconds())
				return nil, ctx.Err()
			}
			e.logger.WithError(err).WithField("group", key).Warn("Forward data unavailable, excluding signals")
		}
		for _, entry := range group {
			e.scoreSignal(run, entry.Signal, data)
		}
	}

	e.finish(run)
	return run, nil
}

// forwardData fetches the bars the configured policies need
func (e *Engine) forwardData(ctx context.Context, symbol string, day time.Time) (ForwardData, error) {
	var (
		data ForwardData
		errs []error
	)

	if e.config.HasPolicy(models.ExitNextBar) || e.config.HasPolicy(models.ExitConstrainedIntraday) {
		sessionOpen, sessionClose := e.calendar.Session().Bounds(day)
		bars, err := e.fetch(ctx, symbol, sessionOpen, sessionClose, e.config.ReplayInterval)
		if err != nil {
			errs = append(errs, err)
		}
		data.Intraday = bars
	}

	if e.config.HasPolicy(models.ExitNextSessionClose) {
		to := day.AddDate(0, 0, e.config.NextSessionDays)
		bars, err := e.fetch(ctx, symbol, day, to, models.IntervalOneDay)
		if err != nil {
			errs = append(errs, err)
		}
		data.Daily = bars
	}
	return data, errors.Join(errs...)
}

func (e *Engine) fetch(ctx context.Context, symbol string, from, to time.Time, interval models.Interval) ([]models.Bar, error) {
	if e.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.FetchTimeout)
		defer cancel()
	}
	return e.source.FetchBars(ctx, symbol, from, to, interval)
}

// scoreSignal applies every policy to signal and records the outcomes
func (e *Engine) scoreSignal(run *Run, signal models.Signal, data ForwardData) {
	for _, policy := range e.config.Policies {
		result, err := Score(policy, signal, data)
		if err != nil {
			run.Excluded++
			e.logger.WithFields(logrus.Fields{
				"symbol": signal.Symbol,
				"date":   signal.SessionDate.Format(models.DateLayout),
				"policy": policy,
			}).WithError(err).Debug("Signal excluded")
			continue
		}
		run.Results = append(run.Results, result)
	}
}

func (e *Engine) newRun(mode string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now(),
	}
}

// finish orders the results and records summaries, metrics and audit rows
func (e *Engine) finish(run *Run) {
	models.SortResults(run.Results)
	run.Summaries = SummarizeByPolicy(run.Results, e.config.Policies)
	run.Duration = time.Since(run.StartedAt)

	for _, r := range run.Results {
		metrics.RecordBacktestTrade(string(r.Policy), string(r.Outcome))
	}
	for _, s := range run.Summaries {
		metrics.UpdateBacktestWinRate(string(s.Policy), s.WinRate)
		e.audit.LogBacktestRun(run.ID, s.Policy, s.TotalTrades, s.Wins, s.TotalPnL)
	}
	metrics.RecordBacktestRun(run.Mode, "success", run.Duration.Seconds())

	e.logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"mode":     run.Mode,
		"results":  len(run.Results),
		"excluded": run.Excluded,
		"duration": run.Duration,
	}).Info("Backtest run complete")
}

// groupByDay buckets bars by exchange-local session date, each day in time order
func groupByDay(bars []models.Bar, loc *time.Location) map[string][]models.Bar {
	out := make(map[string][]models.Bar)
	for _, bar := range bars {
		if !bar.Valid() {
			continue
		}
		d := bar.Time.In(loc).Format(models.DateLayout)
		out[d] = append(out[d], bar)
	}
	for _, day := range out {
		sort.Slice(day, func(i, j int) bool { return day[i].Time.Before(day[j].Time) })
	}
	return out
}
