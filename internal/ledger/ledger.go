// Package ledger implements the per-day dedup ledger of emitted signals.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/orb-scanner/internal/logger"
	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/repository"
)

// Ledger tracks which (date, symbol, direction) keys were delivered on the
// current trading day. Keys are marked only after confirmed delivery.
type Ledger struct {
	mu    sync.Mutex
	store repository.SentLedgerRepository
	audit *logger.AuditLogger
	day   string
	keys  map[models.DedupKey]string
}

// New creates an empty ledger persisted through store. audit may be nil.
// Call Load before the first query.
func New(store repository.SentLedgerRepository, audit *logger.AuditLogger) *Ledger {
	return &Ledger{
		store: store,
		audit: audit,
		keys:  make(map[models.DedupKey]string),
	}
}

// Load reads the persisted rows for day. Rows from any other date are
// discarded and the file is rewritten without them.
func (l *Ledger) Load(day time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	date := day.Format(models.DateLayout)
	records, err := l.store.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load sent ledger: %w", err)
	}

	keys := make(map[models.DedupKey]string, len(records))
	kept := make([]repository.SentRecord, 0, len(records))
	stale := 0
	for _, r := range records {
		if r.Key.Date != date {
			stale++
			continue
		}
		if _, dup := keys[r.Key]; dup {
			continue
		}
		keys[r.Key] = r.Time
		kept = append(kept, r)
	}

	if stale > 0 {
		if err := l.store.Rewrite(kept); err != nil {
			return fmt.Errorf("failed to clear stale ledger rows: %w", err)
		}
		if l.audit != nil {
			l.audit.LogLedgerReset(staleDay(records, date), date, stale)
		}
	}

	l.day = date
	l.keys = keys
	metrics.UpdateLedgerSize(len(l.keys))
	return nil
}

// Day returns the trading day the ledger is scoped to
func (l *Ledger) Day() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.day
}

// Len returns the number of keys marked today
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// HasSent reports whether key was already delivered. A key dated after the
// ledger's day rolls the ledger over first.
func (l *Ledger) HasSent(key models.DedupKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover(key.Date)
	_, ok := l.keys[key]
	return ok
}

// Filter drops candidates whose key is already marked as well as repeated
// keys within the batch, keeping the first occurrence. It does not mark.
func (l *Ledger) Filter(candidates []models.Signal) []models.Signal {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Signal, 0, len(candidates))
	seen := make(map[models.DedupKey]struct{}, len(candidates))
	for _, c := range candidates {
		key := c.Key()
		l.rollover(key.Date)
		if _, sent := l.keys[key]; sent {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// MarkSent persists the keys of delivered signals and returns the keys that
// were newly marked. Check and mark happen under one lock, so concurrent
// callers never record the same key twice.
func (l *Ledger) MarkSent(signals []models.Signal) ([]models.DedupKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		fresh   []models.DedupKey
		records []repository.SentRecord
		batch   = make(map[models.DedupKey]struct{})
	)
	for _, s := range signals {
		key := s.Key()
		l.rollover(key.Date)
		if key.Date != l.day {
			return nil, fmt.Errorf("cannot mark %s: ledger is scoped to %s", key, l.day)
		}
		if _, sent := l.keys[key]; sent {
			continue
		}
		if _, dup := batch[key]; dup {
			continue
		}
		batch[key] = struct{}{}
		fresh = append(fresh, key)
		records = append(records, repository.SentRecord{Key: key, Time: s.TriggerClock()})
	}
	if len(records) == 0 {
		return nil, nil
	}

	if err := l.store.Append(records); err != nil {
		return nil, fmt.Errorf("failed to persist sent keys: %w", err)
	}
	for _, r := range records {
		l.keys[r.Key] = r.Time
	}
	metrics.UpdateLedgerSize(len(l.keys))
	return fresh, nil
}

// Reset clears the ledger and scopes it to day
func (l *Ledger) Reset(day time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Rewrite(nil); err != nil {
		return fmt.Errorf("failed to reset sent ledger: %w", err)
	}
	l.day = day.Format(models.DateLayout)
	l.keys = make(map[models.DedupKey]string)
	metrics.UpdateLedgerSize(0)
	return nil
}

// Snapshot returns the marked keys in a stable order
func (l *Ledger) Snapshot() []models.DedupKey {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.DedupKey, 0, len(l.keys))
	for k := range l.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// rollover moves the ledger to date when date is later than the current day.
// Callers hold l.mu.
func (l *Ledger) rollover(date string) {
	if l.day != "" && date <= l.day {
		return
	}
	previous, dropped := l.day, len(l.keys)
	l.day = date
	l.keys = make(map[models.DedupKey]string)
	metrics.UpdateLedgerSize(0)

	if dropped == 0 && previous == "" {
		return
	}
	if err := l.store.Rewrite(nil); err != nil && l.audit != nil {
		l.audit.WithError(err).Warn("Failed to clear persisted ledger on rollover")
	}
	if l.audit != nil {
		l.audit.LogLedgerReset(previous, date, dropped)
	}
}

func staleDay(records []repository.SentRecord, today string) string {
	latest := ""
	for _, r := range records {
		if r.Key.Date != today && r.Key.Date > latest {
			latest = r.Key.Date
		}
	}
	return latest
}
