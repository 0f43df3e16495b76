package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/orb-scanner/internal/datasource"
	"github.com/yourusername/orb-scanner/internal/ledger"
	"github.com/yourusername/orb-scanner/internal/logger"
	"github.com/yourusername/orb-scanner/internal/market"
	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/notifier"
	"github.com/yourusername/orb-scanner/internal/repository"
	"github.com/yourusername/orb-scanner/internal/strategy"
)

// Scanner runs the live evaluation cycle: snapshots, latest price,
// breakout evaluation, dedup, delivery, then history.
type Scanner struct {
	symbols   []string
	ranges    *RangeService
	prices    datasource.BarSource
	strategy  strategy.Strategy
	ledger    *ledger.Ledger
	notifier  notifier.Notifier
	history   repository.HistoryRepository
	calendar  *market.Calendar
	validator *BarValidator
	opts      FetchOptions
	pacer     *rate.Limiter
	signalLog *logger.SignalLogger
	audit     *logger.AuditLogger
	now       func() time.Time

	// running serializes cycles; the ledger check and mark happen under it
	running sync.Mutex
}

// NewScanner creates a scanner over a fixed symbol universe
func NewScanner(
	symbols []string,
	ranges *RangeService,
	prices datasource.BarSource,
	strat strategy.Strategy,
	dedup *ledger.Ledger,
	sink notifier.Notifier,
	history repository.HistoryRepository,
	calendar *market.Calendar,
	opts FetchOptions,
	pacer *rate.Limiter,
	baseLogger *logrus.Logger,
) *Scanner {
	if opts.Interval == "" {
		opts.Interval = models.IntervalOneMinute
	}
	if pacer == nil {
		pacer = NewPacer(opts.RequestDelay)
	}
	return &Scanner{
		symbols:   symbols,
		ranges:    ranges,
		prices:    prices,
		strategy:  strat,
		ledger:    dedup,
		notifier:  sink,
		history:   history,
		calendar:  calendar,
		validator: NewBarValidator(baseLogger),
		opts:      opts,
		pacer:     pacer,
		signalLog: logger.NewSignalLogger(baseLogger),
		audit:     logger.NewAuditLogger(baseLogger),
		now:       time.Now,
	}
}

// RunCycle runs one cycle for the current time
func (s *Scanner) RunCycle(ctx context.Context) (*CycleReport, error) {
	return s.RunCycleAt(ctx, s.now())
}

// RunCycleAt runs one cycle as of now. Outside the scan window the cycle is
// skipped. Symbol failures are isolated; a failed delivery leaves the
// ledger unmarked so the signals are retried next cycle. A cycle that
// starts while another is still running is skipped.
func (s *Scanner) RunCycleAt(ctx context.Context, now time.Time) (report *CycleReport, err error) {
	local := now.In(s.calendar.Location())
	report = NewCycleReport(uuid.NewString(), local)

	if !s.running.TryLock() {
		report.Skipped = true
		report.Overlapped = true
		s.signalLog.WithFields(logrus.Fields{
			"cycle_id": report.CycleID,
			"time":     local.Format(time.RFC3339),
		}).Warn("Previous cycle still running, skipping cycle")
		metrics.ScanCyclesTotal.WithLabelValues("overlapped").Inc()
		return report, nil
	}
	defer s.running.Unlock()

	started := time.Now()

	defer func() {
		report.Duration = time.Since(started)
		status := report.Status()
		if err != nil {
			status = "error"
		}
		metrics.RecordScanCycle(status, report.Duration.Seconds())
		if !report.Skipped {
			s.signalLog.LogCycleSummary(report.CycleID, report.SymbolsEvaluated, len(report.Candidates),
				len(report.Emitted), len(report.Failures), report.Duration)
		}
	}()

	if !s.calendar.ScanReady(local) {
		report.Skipped = true
		s.signalLog.WithFields(logrus.Fields{
			"cycle_id": report.CycleID,
			"time":     local.Format(time.RFC3339),
		}).Info("Outside scan window, skipping cycle")
		return report, nil
	}

	day := s.calendar.SessionDate(local)
	report.SessionDate = day.Format(models.DateLayout)

	snapshots, failures, err := s.ranges.EnsureSnapshots(ctx, day, s.symbols)
	if err != nil {
		return report, fmt.Errorf("failed to load opening ranges: %w", err)
	}
	for sym, ferr := range failures {
		report.RecordFailure(sym, ferr)
		s.signalLog.LogSymbolFailure(report.CycleID, sym, "range", ferr)
	}

	for _, snap := range snapshots {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.SymbolsEvaluated++

		if !snap.HasPrevClose() {
			continue
		}
		price, perr := s.latestPrice(ctx, snap.Symbol, day, local)
		if perr != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.RecordFailure(snap.Symbol, perr)
			s.signalLog.LogSymbolFailure(report.CycleID, snap.Symbol, "price", perr)
			continue
		}

		signal, ok := s.strategy.Evaluate(snap, price.Close, local)
		if !ok {
			continue
		}
		report.Candidates = append(report.Candidates, signal)
		s.signalLog.LogCandidate(report.CycleID, signal)
		metrics.RecordSignal(string(signal.Direction), "candidate")
	}

	fresh := s.ledger.Filter(report.Candidates)
	report.Suppressed = suppressedKeys(report.Candidates, fresh)
	for _, key := range report.Suppressed {
		s.signalLog.LogSuppressed(report.CycleID, key)
		metrics.RecordSignal(string(key.Direction), "suppressed")
	}
	if len(fresh) == 0 {
		return report, nil
	}

	if derr := s.notifier.Notify(ctx, fresh); derr != nil {
		report.DeliveryErr = derr
		s.audit.LogDeliveryFailure(len(fresh), fallbackPath(s.notifier), derr)
		return report, nil
	}

	marked, err := s.ledger.MarkSent(fresh)
	if err != nil {
		return report, fmt.Errorf("signals delivered but not marked: %w", err)
	}
	emitted := markedSignals(fresh, marked)
	if len(emitted) == 0 {
		return report, nil
	}
	entries := make([]models.EmissionLogEntry, 0, len(emitted))
	for _, sig := range emitted {
		entries = append(entries, models.NewEmissionLogEntry(sig, local))
	}
	if err := s.history.Append(entries); err != nil {
		return report, fmt.Errorf("signals delivered but not recorded: %w", err)
	}
	for _, entry := range entries {
		s.audit.LogEmission(entry)
		metrics.RecordSignal(string(entry.Direction), "emitted")
	}
	report.Emitted = emitted
	return report, nil
}

// markedSignals keeps the first signal of each key the ledger newly marked
func markedSignals(signals []models.Signal, marked []models.DedupKey) []models.Signal {
	pending := make(map[models.DedupKey]bool, len(marked))
	for _, key := range marked {
		pending[key] = true
	}
	out := make([]models.Signal, 0, len(marked))
	for _, sig := range signals {
		if key := sig.Key(); pending[key] {
			delete(pending, key)
			out = append(out, sig)
		}
	}
	return out
}

// latestPrice returns the most recent bar of the session at or before now
func (s *Scanner) latestPrice(ctx context.Context, symbol string, day, now time.Time) (models.Bar, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return models.Bar{}, err
	}
	from, _ := s.calendar.Session().Bounds(day)
	step, err := s.opts.Interval.Duration()
	if err != nil {
		return models.Bar{}, err
	}
	bars, err := fetchBars(ctx, s.prices, symbol, from, now.Add(step), s.opts.Interval, s.opts.Timeout)
	if err != nil {
		return models.Bar{}, err
	}
	bars, _ = s.validator.Sanitize(symbol, bars)
	return strategy.LatestPrice(bars, now)
}

func suppressedKeys(candidates, fresh []models.Signal) []models.DedupKey {
	kept := make(map[models.DedupKey]int, len(fresh))
	for _, f := range fresh {
		kept[f.Key()]++
	}
	var out []models.DedupKey
	for _, c := range candidates {
		key := c.Key()
		if kept[key] > 0 {
			kept[key]--
			continue
		}
		out = append(out, key)
	}
	return out
}

func fallbackPath(n notifier.Notifier) string {
	if f, ok := n.(interface{ FallbackPath() string }); ok {
		return f.FallbackPath()
	}
	return ""
}
