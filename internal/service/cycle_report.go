package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/orb-scanner/internal/models"
)

// CycleReport tracks the outcome of one evaluation cycle
type CycleReport struct {
	CycleID          string
	StartedAt        time.Time
	Duration         time.Duration
	SessionDate      string
	Skipped          bool
	Overlapped       bool
	SymbolsEvaluated int
	Candidates       []models.Signal
	Suppressed       []models.DedupKey
	Emitted          []models.Signal
	Failures         map[string]error
	DeliveryErr      error
}

// NewCycleReport creates an empty report for a cycle
func NewCycleReport(cycleID string, startedAt time.Time) *CycleReport {
	return &CycleReport{
		CycleID:   cycleID,
		StartedAt: startedAt,
		Failures:  make(map[string]error),
	}
}

// RecordFailure notes a per-symbol failure; the cycle continues
func (r *CycleReport) RecordFailure(symbol string, err error) {
	r.Failures[symbol] = err
}

// FailedSymbols returns the symbols that failed, sorted
func (r *CycleReport) FailedSymbols() []string {
	out := make([]string, 0, len(r.Failures))
	for s := range r.Failures {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Status labels the cycle for metrics
func (r *CycleReport) Status() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.DeliveryErr != nil:
		return "delivery_failed"
	case len(r.Failures) > 0:
		return "partial"
	default:
		return "ok"
	}
}

// String returns a formatted summary
func (r *CycleReport) String() string {
	return fmt.Sprintf(
		"CycleReport{ID=%s, Date=%s, Status=%s, Symbols=%d, Candidates=%d, Suppressed=%d, Emitted=%d, Failures=%d, Duration=%v}",
		r.CycleID,
		r.SessionDate,
		r.Status(),
		r.SymbolsEvaluated,
		len(r.Candidates),
		len(r.Suppressed),
		len(r.Emitted),
		len(r.Failures),
		r.Duration,
	)
}
