package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle for now",
	Long:  `Builds the opening ranges if needed, evaluates every symbol once and delivers any new signals. Outside the scan window the cycle is skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context())
	},
}

func runScan(ctx context.Context) error {
	deps, err := setupDependencies()
	if err != nil {
		return err
	}
	defer deps.Close()

	scanner, _, err := deps.newScanner()
	if err != nil {
		return err
	}

	report, err := scanner.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("scan cycle failed: %w", err)
	}

	if report.Skipped {
		appLog.WithField("at", report.StartedAt.Format("2006-01-02 15:04")).Info("Outside the scan window; nothing to do")
		return nil
	}

	appLog.WithFields(logrus.Fields{
		"cycle_id": report.CycleID,
		"status":   report.Status(),
		"emitted":  len(report.Emitted),
		"failed":   report.FailedSymbols(),
	}).Info(report.String())
	return nil
}
