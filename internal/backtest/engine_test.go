package backtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/orb-scanner/internal/config"
	"github.com/yourusername/orb-scanner/internal/logger"
	"github.com/yourusername/orb-scanner/internal/market"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/strategy"
)

type stubSource struct {
	intraday map[string][]models.Bar
	daily    map[string][]models.Bar
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) FetchBars(ctx context.Context, symbol string, from, to time.Time, interval models.Interval) ([]models.Bar, error) {
	if interval == models.IntervalOneDay {
		return s.daily[symbol], nil
	}
	return s.intraday[symbol], nil
}

func testCalendar(t *testing.T) *market.Calendar {
	t.Helper()
	cal, err := market.NewCalendar(config.MarketConfig{
		Timezone:     "Asia/Kolkata",
		SessionOpen:  "09:15",
		SessionClose: "15:30",
		WindowStart:  "09:15",
		WindowEnd:    "09:30",
	})
	require.NoError(t, err)
	return cal
}

func testConfig(t *testing.T) BacktestConfig {
	t.Helper()
	window, err := market.ParseWindow("09:15", "09:35")
	require.NoError(t, err)
	return BacktestConfig{
		Policies:       []models.ExitPolicy{models.ExitNextBar, models.ExitNextSessionClose, models.ExitConstrainedIntraday},
		ReplayWindow:   window,
		ReplayInterval: models.IntervalFiveMinute,
		LookbackDays:   1,
	}
}

func TestNewEngineRequiresSource(t *testing.T) {
	_, err := NewEngine(testConfig(t), nil, testCalendar(t), nil, nil)
	assert.Error(t, err)
}

func TestScoreHistory(t *testing.T) {
	cal := testCalendar(t)
	loc := cal.Location()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)

	source := stubSource{
		intraday: map[string][]models.Bar{
			"X.NS": sessionBars(day,
				[5]float64{945, 111, 114, 109, 112},
				[5]float64{1525, 109, 110, 107, 108},
			),
		},
		daily: map[string][]models.Bar{
			"X.NS": {{Time: time.Date(2025, 3, 11, 0, 0, 0, 0, loc), Open: 1, High: 1, Low: 1, Close: 115}},
		},
	}
	engine, err := NewEngine(testConfig(t), source, cal, nil, logger.Discard())
	require.NoError(t, err)

	signal := models.Signal{
		Symbol: "X.NS", SessionDate: day, Direction: models.DirectionBuy,
		Price: 110, High: 105, Low: 98, TriggeredAt: time.Date(2025, 3, 10, 9, 40, 0, 0, loc),
	}
	missing := signal
	missing.Symbol = "NODATA.NS"

	run, err := engine.ScoreHistory(context.Background(), []models.EmissionLogEntry{
		models.NewEmissionLogEntry(signal, signal.TriggeredAt),
		models.NewEmissionLogEntry(missing, signal.TriggeredAt),
	})
	require.NoError(t, err)

	assert.Equal(t, ModeHistory, run.Mode)
	assert.NotEmpty(t, run.ID)
	require.Len(t, run.Results, 3)
	assert.Equal(t, 3, run.Excluded, "no forward data means excluded, not a loss")

	byPolicy := make(map[models.ExitPolicy]models.BacktestResult)
	for _, r := range run.Results {
		byPolicy[r.Policy] = r
	}
	assert.Equal(t, 108.0, byPolicy[models.ExitNextBar].ExitPrice)
	assert.Equal(t, 115.0, byPolicy[models.ExitNextSessionClose].ExitPrice)
	assert.Equal(t, 114.0, byPolicy[models.ExitConstrainedIntraday].ExitPrice)

	require.Len(t, run.Summaries, 3)
	for _, s := range run.Summaries {
		assert.Equal(t, 1, s.TotalTrades)
	}
}

func TestScoreHistoryEmpty(t *testing.T) {
	engine, err := NewEngine(testConfig(t), stubSource{}, testCalendar(t), nil, logger.Discard())
	require.NoError(t, err)

	run, err := engine.ScoreHistory(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, run.Results)
	for _, s := range run.Summaries {
		assert.Equal(t, 0, s.TotalTrades)
	}
}

func TestScoreHistoryCancelled(t *testing.T) {
	engine, err := NewEngine(testConfig(t), stubSource{}, testCalendar(t), nil, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entry := models.NewEmissionLogEntry(models.Signal{Symbol: "X.NS", SessionDate: time.Now()}, time.Now())
	_, err = engine.ScoreHistory(ctx, []models.EmissionLogEntry{entry})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplay(t *testing.T) {
	cal := testCalendar(t)
	loc := cal.Location()
	prevDay := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	day := time.Date(2025, 3, 11, 0, 0, 0, 0, loc)

	bars := append(
		sessionBars(prevDay, [5]float64{1525, 96, 97, 94, 95}),
		sessionBars(day,
			[5]float64{915, 100, 102, 98, 101},
			[5]float64{920, 101, 105, 100, 103},
			[5]float64{925, 103, 104, 99, 104},
			[5]float64{930, 104, 105, 102, 104},
			[5]float64{935, 104, 105, 103, 104.5},
			[5]float64{940, 105, 111, 105, 110},
			[5]float64{945, 110.5, 113, 109, 112},
			[5]float64{1525, 112, 112, 108, 109},
		)...,
	)
	source := stubSource{intraday: map[string][]models.Bar{"X.NS": bars}}

	engine, err := NewEngine(testConfig(t), source, cal, strategy.NewBreakout(strategy.DefaultBreakoutParams()), logger.Discard())
	require.NoError(t, err)

	run, err := engine.Replay(context.Background(), []string{"X.NS", "EMPTY.NS"}, clock(day, 16, 0))
	require.NoError(t, err)
	assert.Equal(t, ModeReplay, run.Mode)

	require.Len(t, run.Results, 2)
	assert.Equal(t, 1, run.Excluded, "no later session for next_session_close")

	byPolicy := make(map[models.ExitPolicy]models.BacktestResult)
	for _, r := range run.Results {
		byPolicy[r.Policy] = r
		assert.Equal(t, "09:40:00", r.Time)
		assert.Equal(t, models.DirectionBuy, r.Direction)
		assert.Equal(t, "2025-03-11", r.Date())
	}
	assert.Equal(t, 110.5, byPolicy[models.ExitNextBar].EntryPrice)
	assert.Equal(t, 109.0, byPolicy[models.ExitNextBar].ExitPrice)
	assert.Equal(t, 110.0, byPolicy[models.ExitConstrainedIntraday].EntryPrice)
	assert.Equal(t, 113.0, byPolicy[models.ExitConstrainedIntraday].ExitPrice)
}

func TestReplayRequiresStrategy(t *testing.T) {
	engine, err := NewEngine(testConfig(t), stubSource{}, testCalendar(t), nil, logger.Discard())
	require.NoError(t, err)
	_, err = engine.Replay(context.Background(), []string{"X.NS"}, time.Now())
	assert.Error(t, err)
}

func TestReportsAndCharts(t *testing.T) {
	dir := t.TempDir()
	results := sampleResults()
	run := &Run{
		ID:        "run-1",
		Mode:      ModeHistory,
		Results:   results,
		Summaries: SummarizeByPolicy(results, []models.ExitPolicy{models.ExitNextBar, models.ExitNextSessionClose}),
	}

	report := GenerateConsoleReport(run)
	assert.Contains(t, report, "Policy: next_bar")
	assert.Contains(t, report, "Win Rate: 50.00%")
	assert.Contains(t, report, "A.NS")
	assert.Contains(t, report, "Total Portfolio PnL: 4.00%")
	assert.Contains(t, report, "No trades.")

	csvPath := filepath.Join(dir, "summary.csv")
	require.NoError(t, GenerateCSVExport(run, csvPath))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "next_bar,4,2,2,0.5000,1.0000,4.0000,1.0000")

	equity := filepath.Join(dir, "charts", "equity.png")
	require.NoError(t, RenderEquityCurve(results, equity))
	info, err := os.Stat(equity)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	portfolio := filepath.Join(dir, "portfolio.png")
	require.NoError(t, RenderPortfolioCurve(results, portfolio))
	assert.FileExists(t, portfolio)

	assert.ErrorIs(t, RenderEquityCurve(nil, equity), models.ErrNoData)
	assert.ErrorIs(t, RenderPortfolioCurve(nil, portfolio), models.ErrNoData)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.DataDir = "data"
	cfg.Backtest = config.BacktestConfig{
		ExitPolicies:      []string{"next_bar", "constrained_intraday"},
		ReplayWindowStart: "09:15",
		ReplayWindowEnd:   "09:35",
		ReplayInterval:    "5m",
		LookbackDays:      30,
		ResultsFile:       "backtest_results.csv",
		EquityChartFile:   "equity.png",
	}

	bt, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.True(t, bt.HasPolicy(models.ExitConstrainedIntraday))
	assert.False(t, bt.HasPolicy(models.ExitNextSessionClose))
	assert.Equal(t, filepath.Join("data", "backtest_results.csv"), bt.ResultsPath)
	assert.Equal(t, filepath.Join("data", "equity.png"), bt.EquityChartPath)
	assert.Empty(t, bt.PortfolioChartPath)

	cfg.Backtest.ExitPolicies = []string{"trailing"}
	_, err = FromConfig(cfg)
	assert.ErrorIs(t, err, models.ErrUnknownExitPolicy)
}
