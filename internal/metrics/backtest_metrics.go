// Package metrics defines backtesting-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by mode and status",
	}, []string{"mode", "status"})
	BacktestTradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_trades_total",
		Help:      "Scored trades by exit policy and outcome",
	}, []string{"policy", "outcome"})
)

// Backtest gauge vectors
var (
	BacktestWinRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_win_rate",
		Help:      "Win rate of the latest backtest run per exit policy",
	}, []string{"policy"})
)

// Backtest histograms
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// RecordBacktestRun records a backtest run event.
// mode is "history" or "replay"; status is "success" or "failure".
func RecordBacktestRun(mode, status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(mode, status).Inc()
	BacktestDuration.Observe(durationSeconds)
}

// RecordBacktestTrade records one scored trade.
func RecordBacktestTrade(policy, outcome string) {
	BacktestTradesTotal.WithLabelValues(policy, outcome).Inc()
}

// UpdateBacktestWinRate sets the latest win rate for a policy.
func UpdateBacktestWinRate(policy string, winRate float64) {
	BacktestWinRate.WithLabelValues(policy).Set(winRate)
}
