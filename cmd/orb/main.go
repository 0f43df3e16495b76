// Package main provides the orb command line: live scanning, the scheduled
// scanner and the backtesting tools.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/orb-scanner/internal/config"
	"github.com/yourusername/orb-scanner/internal/logger"
	"github.com/yourusername/orb-scanner/internal/market"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	envFile    string
	appLog     *logrus.Logger
	cfg        *config.Config
	calendar   *market.Calendar
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file with credentials")

	rootCmd.AddCommand(scanCmd, runCmd, backtestCmd, replayCmd, plotCmd, historyCmd)
}

var rootCmd = &cobra.Command{
	Use:           "orb",
	Short:         "Opening range breakout scanner",
	Long:          `Scans the symbol universe for opening range breakouts, delivers new signals to Telegram and scores past signals.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context())
	},
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if appLog != nil {
			appLog.Fatalf("Error: %v", err)
		}
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if config.SecretsEnabled() {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if err := config.LoadSecretsFromAWS(ctx, loaded, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cal, err := market.NewCalendar(loaded.Market)
	if err != nil {
		return err
	}

	cfg = loaded
	calendar = cal
	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"provider":    cfg.DataSource.Provider,
		"timezone":    cfg.Market.Timezone,
		"version":     Version,
	}).Debug("Configuration loaded")
	return nil
}
