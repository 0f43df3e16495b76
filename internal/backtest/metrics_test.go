package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/orb-scanner/internal/models"
)

func result(date, clock, symbol string, pnl float64) models.BacktestResult {
	day, _ := time.ParseInLocation(models.DateLayout, date, ist)
	outcome := models.OutcomeLoss
	if pnl > 0 {
		outcome = models.OutcomeWin
	}
	return models.BacktestResult{
		Symbol:      symbol,
		SessionDate: day,
		Time:        clock,
		Direction:   models.DirectionBuy,
		Policy:      models.ExitNextBar,
		EntryPrice:  100,
		ExitPrice:   100 + pnl,
		PnLPercent:  pnl,
		Outcome:     outcome,
	}
}

func sampleResults() []models.BacktestResult {
	return []models.BacktestResult{
		result("2025-03-11", "09:45:00", "B.NS", 0),
		result("2025-03-10", "10:00:00", "B.NS", -1),
		result("2025-03-10", "09:40:00", "A.NS", 2),
		result("2025-03-12", "09:50:00", "A.NS", 3),
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())

	assert.Equal(t, models.ExitNextBar, s.Policy)
	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses, "zero pnl counts as a loss")
	assert.InDelta(t, 0.5, s.WinRate, 1e-9)
	assert.InDelta(t, 1.0, s.MeanPnL, 1e-9)
	assert.InDelta(t, 4.0, s.TotalPnL, 1e-9)
	assert.Equal(t, []float64{2, 1, 1, 4}, s.Cumulative, "running sum in date then time order")
	assert.Equal(t, 3.0, s.BestTrade)
	assert.Equal(t, -1.0, s.WorstTrade)
	assert.Equal(t, 1.0, s.MaxDrawdown)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Empty(t, s.Cumulative)
}

func TestSummarizeByPolicy(t *testing.T) {
	results := sampleResults()
	other := result("2025-03-10", "09:40:00", "A.NS", 5)
	other.Policy = models.ExitConstrainedIntraday
	results = append(results, other)

	summaries := SummarizeByPolicy(results, []models.ExitPolicy{models.ExitConstrainedIntraday, models.ExitNextBar, models.ExitNextSessionClose})
	assert.Len(t, summaries, 3)
	assert.Equal(t, 1, summaries[0].TotalTrades)
	assert.Equal(t, 4, summaries[1].TotalTrades)
	assert.Equal(t, models.ExitNextSessionClose, summaries[2].Policy)
	assert.Equal(t, 0, summaries[2].TotalTrades)
}

func TestPerSymbolPnL(t *testing.T) {
	totals := PerSymbolPnL(sampleResults())
	assert.Equal(t, []SymbolPnL{
		{Symbol: "A.NS", Trades: 2, TotalPnL: 5},
		{Symbol: "B.NS", Trades: 2, TotalPnL: -1},
	}, totals)
}

func TestDailyPortfolio(t *testing.T) {
	daily := DailyPortfolio(sampleResults())
	assert.Equal(t, []DailyPnL{
		{Date: "2025-03-10", PnL: 1, Cumulative: 1},
		{Date: "2025-03-11", PnL: 0, Cumulative: 1},
		{Date: "2025-03-12", PnL: 3, Cumulative: 4},
	}, daily)
}

func TestEquityCurve(t *testing.T) {
	curve := BuildEquityCurve(sampleResults())
	assert.Len(t, curve, 4)
	assert.Equal(t, "A.NS", curve[0].Symbol)
	assert.Equal(t, 4.0, curve.Final())
	assert.Equal(t, 1.0, curve.MaxDrawdown())
	assert.Greater(t, curve.GetVolatility(), 0.0)
	assert.Contains(t, curve.ToCSV(), "1,2025-03-10,09:40:00,A.NS,2.0000,2.0000,0.0000")
	assert.Contains(t, curve.ToJSON(), `"cumulative_percent":4`)
}
