// Package logger provides signal pipeline logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/models"
)

// SignalLogger provides dedicated logging for scan cycles and signal decisions.
type SignalLogger struct {
	*logrus.Entry
}

// NewSignalLogger creates a new signal logger.
func NewSignalLogger(baseLogger *logrus.Logger) *SignalLogger {
	return &SignalLogger{
		Entry: baseLogger.WithField("component", "signal"),
	}
}

// LogCycleSummary logs the outcome of one evaluation cycle.
func (sl *SignalLogger) LogCycleSummary(cycleID string, symbolsEvaluated, candidates, emitted, failures int, duration time.Duration) {
	sl.WithFields(logrus.Fields{
		"cycle_id":          cycleID,
		"symbols_evaluated": symbolsEvaluated,
		"candidates":        candidates,
		"emitted":           emitted,
		"failures":          failures,
		"duration_ms":       float64(duration.Microseconds()) / 1000,
	}).Info("Scan cycle completed")
}

// LogCandidate logs a signal that passed the breakout and momentum checks.
func (sl *SignalLogger) LogCandidate(cycleID string, signal models.Signal) {
	sl.WithFields(signalFields(signal)).WithField("cycle_id", cycleID).Debug("Breakout candidate")
}

// LogSuppressed logs a candidate dropped by the dedup ledger.
func (sl *SignalLogger) LogSuppressed(cycleID string, key models.DedupKey) {
	sl.WithFields(logrus.Fields{
		"cycle_id":  cycleID,
		"date":      key.Date,
		"symbol":    key.Symbol,
		"direction": key.Direction,
	}).Debug("Signal already sent today")
}

// LogSymbolFailure logs a per-symbol fetch or evaluation failure.
func (sl *SignalLogger) LogSymbolFailure(cycleID, symbol, stage string, err error) {
	sl.WithFields(logrus.Fields{
		"cycle_id": cycleID,
		"symbol":   symbol,
		"stage":    stage,
	}).WithError(err).Warn("Symbol skipped")
}

func signalFields(signal models.Signal) logrus.Fields {
	return logrus.Fields{
		"symbol":     signal.Symbol,
		"date":       signal.SessionDate.Format(models.DateLayout),
		"direction":  signal.Direction,
		"price":      signal.Price,
		"orh":        signal.High,
		"orl":        signal.Low,
		"prev_close": signal.PrevClose,
	}
}
