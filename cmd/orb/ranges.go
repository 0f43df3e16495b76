package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/orb-scanner/internal/datasource"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/service"
)

var (
	rangesDate    string
	rangesRefresh bool
)

func init() {
	rangesCmd.Flags().StringVar(&rangesDate, "date", "", "Session date (YYYY-MM-DD, defaults to today)")
	rangesCmd.Flags().BoolVar(&rangesRefresh, "refresh", false, "Rebuild every snapshot instead of reusing the cache")
	rootCmd.AddCommand(rangesCmd)
}

var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Build and print the opening ranges of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		day := calendar.SessionDate(time.Now())
		if rangesDate != "" {
			parsed, err := time.ParseInLocation(models.DateLayout, rangesDate, calendar.Location())
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			day = parsed
		}
		if !calendar.IsTradingDay(day) {
			return fmt.Errorf("%s is not a trading day", day.Format(models.DateLayout))
		}

		deps, err := setupDependencies()
		if err != nil {
			return err
		}
		defer deps.Close()

		symbols, err := datasource.LoadSymbols(cfg.Path(cfg.Storage.SymbolsFile), cfg.Market.SymbolSuffix)
		if err != nil {
			return fmt.Errorf("failed to load symbols: %w", err)
		}

		opts := deps.fetchOptions()
		ranges := deps.newRangeService(opts, service.NewPacer(opts.RequestDelay))

		build := ranges.EnsureSnapshots
		if rangesRefresh {
			build = ranges.Refresh
		}
		snapshots, failures, err := build(cmd.Context(), day, symbols)
		if err != nil {
			return err
		}

		for symbol, ferr := range failures {
			appLog.WithError(ferr).WithField("symbol", symbol).Warn("Opening range unavailable")
		}
		printSnapshots(snapshots)

		appLog.WithFields(logrus.Fields{
			"date":     day.Format(models.DateLayout),
			"built":    len(snapshots),
			"failures": len(failures),
		}).Info("Opening ranges ready")
		return nil
	},
}

func printSnapshots(snapshots []models.RangeSnapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tOPEN\tHIGH\tLOW\tCLOSE\tPREV CLOSE")
	for _, s := range snapshots {
		prev := "-"
		if s.HasPrevClose() {
			prev = fmt.Sprintf("%.2f", *s.PrevClose)
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n", s.Symbol, s.Open, s.High, s.Low, s.Close, prev)
	}
	w.Flush()
}
