package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/orb-scanner/internal/health"
	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/scheduler"
)

var runImmediately bool

func init() {
	runCmd.Flags().BoolVar(&runImmediately, "now", true, "Run one cycle at startup before the first scheduled tick")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scanner on its cron schedule",
	Long:  `Starts the scheduled scan loop in the exchange timezone together with the health and metrics server, until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduler(cmd.Context())
	},
}

func runScheduler(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDependencies()
	if err != nil {
		return err
	}
	defer deps.Close()

	scanner, dedup, err := deps.newScanner()
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(scanner, calendar.Location(), appLog)
	sched.SetCycleTimeout(cycleTimeout())
	if err := sched.ScheduleScanCycle(cfg.Scheduler.CycleSpec); err != nil {
		return err
	}

	var healthServer *health.Server
	if cfg.Metrics.Enabled {
		healthServer = health.NewServer(health.Config{
			ServiceName:    cfg.App.Name,
			Version:        Version,
			Commit:         GitCommit,
			Port:           strconv.Itoa(cfg.Metrics.Port),
			Logger:         appLog,
			MetricsPath:    cfg.Metrics.Path,
			MetricsHandler: metrics.Handler(),
		})
		healthServer.AddCheck("scheduler", sched)
		healthServer.AddCheck("data_source", health.CheckerFunc(func(ctx context.Context) error {
			if deps.httpClient.IsOpen() {
				return errors.New("circuit breaker open")
			}
			return nil
		}))
		healthServer.AddCheck("telegram", health.CheckerFunc(func(ctx context.Context) error {
			if deps.notifyClient.IsOpen() {
				return errors.New("circuit breaker open")
			}
			return nil
		}))
		healthServer.AddCheck("ledger", health.CheckerFunc(func(ctx context.Context) error {
			if day := dedup.Day(); day == "" {
				return errors.New("ledger not loaded")
			}
			return nil
		}))
		if err := healthServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
	}

	if err := sched.Start(); err != nil {
		return err
	}
	if healthServer != nil {
		healthServer.SetReady(true)
	}

	appLog.WithFields(logrus.Fields{
		"spec":     cfg.Scheduler.CycleSpec,
		"next_run": sched.GetNextRun().Format(time.RFC3339),
	}).Info("Scanner scheduled")

	if runImmediately {
		if _, err := sched.RunNow(ctx); err != nil {
			appLog.WithError(err).Error("Startup cycle failed")
		}
	}

	<-ctx.Done()
	appLog.Info("Shutdown signal received")
	if healthServer != nil {
		healthServer.SetReady(false)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cycleTimeout())
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		appLog.WithError(err).Error("Error during scheduler shutdown")
	}

	appLog.Info("ORB scanner shut down successfully")
	return nil
}

// cycleTimeout allows three fetches and one pacing delay for fifty symbols,
// with a one minute floor.
func cycleTimeout() time.Duration {
	perSymbol := 3*cfg.FetchTimeout() + cfg.RequestDelay()
	timeout := 50 * perSymbol
	if timeout < time.Minute {
		timeout = time.Minute
	}
	return timeout
}
