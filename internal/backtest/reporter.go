package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats a run for terminal output
func GenerateConsoleReport(run *Run) string {
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Run: %s (%s)\n", run.ID, run.Mode))
	builder.WriteString(fmt.Sprintf("Scored: %d  Excluded (no forward data): %d\n", len(run.Results), run.Excluded))

	for _, s := range run.Summaries {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("Policy: %s\n", s.Policy))
		if s.TotalTrades == 0 {
			builder.WriteString("  No trades.\n")
			continue
		}
		builder.WriteString(fmt.Sprintf("  Trades: %d  Wins: %d  Losses: %d\n", s.TotalTrades, s.Wins, s.Losses))
		builder.WriteString(fmt.Sprintf("  Win Rate: %.2f%%\n", s.WinRate*100))
		builder.WriteString(fmt.Sprintf("  Mean PnL: %.2f%%\n", s.MeanPnL))
		builder.WriteString(fmt.Sprintf("  Total PnL: %.2f%%\n", s.TotalPnL))
		builder.WriteString(fmt.Sprintf("  Best/Worst Trade: %.2f%% / %.2f%%\n", s.BestTrade, s.WorstTrade))
		builder.WriteString(fmt.Sprintf("  Max Drawdown: %.2f%%\n", s.MaxDrawdown))

		builder.WriteString("  Per-symbol PnL:\n")
		for _, sym := range PerSymbolPnL(FilterPolicy(run.Results, s.Policy)) {
			builder.WriteString(fmt.Sprintf("    %-16s %8.2f%% (%d trades)\n", sym.Symbol, sym.TotalPnL, sym.Trades))
		}
		builder.WriteString(fmt.Sprintf("  Total Portfolio PnL: %.2f%%\n", s.TotalPnL))
	}
	return builder.String()
}

// GenerateCSVExport exports the per-policy summaries for spreadsheets
func GenerateCSVExport(run *Run, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("policy,total_trades,wins,losses,win_rate,mean_pnl_percent,total_pnl_percent,max_drawdown_percent\n")
	for _, s := range run.Summaries {
		b.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.4f,%.4f,%.4f,%.4f\n",
			s.Policy, s.TotalTrades, s.Wins, s.Losses, s.WinRate, s.MeanPnL, s.TotalPnL, s.MaxDrawdown))
	}
	return os.WriteFile(outputPath, []byte(b.String()), 0o644)
}
