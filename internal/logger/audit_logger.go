// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/models"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogEmission records a delivered signal.
func (al *AuditLogger) LogEmission(entry models.EmissionLogEntry) {
	al.WithFields(signalFields(entry.Signal)).WithFields(logrus.Fields{
		"suggested_action": entry.SuggestedAction,
		"emitted_at":       entry.EmittedAt.Unix(),
	}).Info("Signal emission recorded")
}

// LogLedgerReset records a day rollover of the dedup ledger.
func (al *AuditLogger) LogLedgerReset(previousDay, newDay string, droppedKeys int) {
	al.WithFields(logrus.Fields{
		"previous_day": previousDay,
		"new_day":      newDay,
		"dropped_keys": droppedKeys,
	}).Info("Dedup ledger rolled over")
}

// LogDeliveryFailure records a failed notification and where its payload was saved.
func (al *AuditLogger) LogDeliveryFailure(signals int, fallbackPath string, err error) {
	al.WithFields(logrus.Fields{
		"signals":       signals,
		"fallback_file": fallbackPath,
	}).WithError(err).Warn("Signal delivery failed")
}

// LogBacktestRun records the summary of a scoring run.
func (al *AuditLogger) LogBacktestRun(runID string, policy models.ExitPolicy, trades, wins int, totalPnL float64) {
	al.WithFields(logrus.Fields{
		"run_id":        runID,
		"policy":        policy,
		"trades":        trades,
		"wins":          wins,
		"total_pnl_pct": totalPnL,
	}).Info("Backtest run recorded")
}
