package backtest

import (
	"sort"

	"github.com/yourusername/orb-scanner/internal/models"
)

// Summary aggregates the scored trades of one exit policy
type Summary struct {
	Policy      models.ExitPolicy `json:"policy"`
	TotalTrades int               `json:"total_trades"`
	Wins        int               `json:"wins"`
	Losses      int               `json:"losses"`
	WinRate     float64           `json:"win_rate"`
	MeanPnL     float64           `json:"mean_pnl_percent"`
	TotalPnL    float64           `json:"total_pnl_percent"`
	BestTrade   float64           `json:"best_trade_percent"`
	WorstTrade  float64           `json:"worst_trade_percent"`
	MaxDrawdown float64           `json:"max_drawdown_percent"`
	// Cumulative is the running P&L sum in chronological order
	Cumulative []float64 `json:"cumulative"`
}

// SymbolPnL is the total P&L of one symbol
type SymbolPnL struct {
	Symbol   string  `json:"symbol"`
	Trades   int     `json:"trades"`
	TotalPnL float64 `json:"total_pnl_percent"`
}

// DailyPnL is the summed P&L of one session and the running total
type DailyPnL struct {
	Date       string  `json:"date"`
	PnL        float64 `json:"pnl_percent"`
	Cumulative float64 `json:"cumulative_percent"`
}

// Summarize aggregates results in chronological order. An empty set yields
// a zero summary.
func Summarize(results []models.BacktestResult) Summary {
	var summary Summary
	if len(results) == 0 {
		return summary
	}

	sorted := sortedCopy(results)
	summary.Policy = sorted[0].Policy
	summary.TotalTrades = len(sorted)
	summary.Cumulative = make([]float64, 0, len(sorted))
	summary.BestTrade = sorted[0].PnLPercent
	summary.WorstTrade = sorted[0].PnLPercent

	for _, r := range sorted {
		if r.Outcome == models.OutcomeWin {
			summary.Wins++
		} else {
			summary.Losses++
		}
		summary.TotalPnL += r.PnLPercent
		summary.Cumulative = append(summary.Cumulative, summary.TotalPnL)
		if r.PnLPercent > summary.BestTrade {
			summary.BestTrade = r.PnLPercent
		}
		if r.PnLPercent < summary.WorstTrade {
			summary.WorstTrade = r.PnLPercent
		}
	}

	summary.WinRate = float64(summary.Wins) / float64(summary.TotalTrades)
	summary.MeanPnL = summary.TotalPnL / float64(summary.TotalTrades)
	summary.MaxDrawdown = BuildEquityCurve(sorted).MaxDrawdown()
	return summary
}

// SummarizeByPolicy returns one summary per policy in the given order
func SummarizeByPolicy(results []models.BacktestResult, policies []models.ExitPolicy) []Summary {
	out := make([]Summary, 0, len(policies))
	for _, p := range policies {
		s := Summarize(FilterPolicy(results, p))
		s.Policy = p
		out = append(out, s)
	}
	return out
}

// FilterPolicy returns the results scored under policy
func FilterPolicy(results []models.BacktestResult, policy models.ExitPolicy) []models.BacktestResult {
	var out []models.BacktestResult
	for _, r := range results {
		if r.Policy == policy {
			out = append(out, r)
		}
	}
	return out
}

// PerSymbolPnL totals P&L per symbol, best first
func PerSymbolPnL(results []models.BacktestResult) []SymbolPnL {
	bySymbol := make(map[string]*SymbolPnL)
	for _, r := range results {
		s, ok := bySymbol[r.Symbol]
		if !ok {
			s = &SymbolPnL{Symbol: r.Symbol}
			bySymbol[r.Symbol] = s
		}
		s.Trades++
		s.TotalPnL += r.PnLPercent
	}

	out := make([]SymbolPnL, 0, len(bySymbol))
	for _, s := range bySymbol {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPnL != out[j].TotalPnL {
			return out[i].TotalPnL > out[j].TotalPnL
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// DailyPortfolio sums P&L per session date, oldest first
func DailyPortfolio(results []models.BacktestResult) []DailyPnL {
	byDate := make(map[string]float64)
	for _, r := range results {
		byDate[r.Date()] += r.PnLPercent
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]DailyPnL, 0, len(dates))
	running := 0.0
	for _, d := range dates {
		running += byDate[d]
		out = append(out, DailyPnL{Date: d, PnL: byDate[d], Cumulative: running})
	}
	return out
}

func sortedCopy(results []models.BacktestResult) []models.BacktestResult {
	out := append([]models.BacktestResult(nil), results...)
	models.SortResults(out)
	return out
}
