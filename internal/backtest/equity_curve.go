package backtest

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/yourusername/orb-scanner/internal/models"
)

// EquityPoint is the running P&L after one trade
type EquityPoint struct {
	Trade    int     `json:"trade"`
	Date     string  `json:"date"`
	Time     string  `json:"time"`
	Symbol   string  `json:"symbol"`
	PnL      float64 `json:"pnl_percent"`
	Value    float64 `json:"cumulative_percent"`
	Drawdown float64 `json:"drawdown_percent"`
}

// EquityCurve is the cumulative P&L per trade in chronological order
type EquityCurve []EquityPoint

// BuildEquityCurve orders results chronologically and accumulates their P&L
func BuildEquityCurve(results []models.BacktestResult) EquityCurve {
	sorted := sortedCopy(results)
	curve := make(EquityCurve, 0, len(sorted))
	value, peak := 0.0, 0.0
	for i, r := range sorted {
		value += r.PnLPercent
		peak = math.Max(peak, value)
		curve = append(curve, EquityPoint{
			Trade:    i + 1,
			Date:     r.Date(),
			Time:     r.Time,
			Symbol:   r.Symbol,
			PnL:      r.PnLPercent,
			Value:    value,
			Drawdown: peak - value,
		})
	}
	return curve
}

// Final returns the last cumulative value
func (e EquityCurve) Final() float64 {
	if len(e) == 0 {
		return 0
	}
	return e[len(e)-1].Value
}

// MaxDrawdown returns the largest peak-to-trough fall in percentage points
func (e EquityCurve) MaxDrawdown() float64 {
	worst := 0.0
	for _, p := range e {
		worst = math.Max(worst, p.Drawdown)
	}
	return worst
}

// GetReturns returns the per-trade P&L
func (e EquityCurve) GetReturns() []float64 {
	returns := make([]float64, 0, len(e))
	for _, p := range e {
		returns = append(returns, p.PnL)
	}
	return returns
}

// GetVolatility calculates the standard deviation of per-trade P&L
func (e EquityCurve) GetVolatility() float64 {
	returns := e.GetReturns()
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// ToCSV exports the equity curve to a CSV string
func (e EquityCurve) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("trade,date,time,symbol,pnl_percent,cumulative_percent,drawdown_percent\n")
	for _, point := range e {
		buf.WriteString(strconv.Itoa(point.Trade))
		buf.WriteString(",")
		buf.WriteString(point.Date)
		buf.WriteString(",")
		buf.WriteString(point.Time)
		buf.WriteString(",")
		buf.WriteString(point.Symbol)
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.PnL))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.Value))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.Drawdown))
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToJSON exports the equity curve to a JSON string
func (e EquityCurve) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
