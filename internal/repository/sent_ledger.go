package repository

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/yourusername/orb-scanner/internal/models"
)

var sentLedgerHeader = []string{"date", "symbol", "direction", "time"}

// CSVSentLedger persists dedup keys as {date, symbol, direction, time} rows
type CSVSentLedger struct {
	path string
	mu   sync.Mutex
}

// NewCSVSentLedger creates a ledger store backed by path
func NewCSVSentLedger(path string) *CSVSentLedger {
	return &CSVSentLedger{path: path}
}

// LoadAll returns every persisted row; a missing file is an empty ledger
func (l *CSVSentLedger) LoadAll() ([]SentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := readTable(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sent ledger %s: %w", l.path, err)
	}
	if len(t.records) == 0 {
		return nil, nil
	}
	if err := t.require("date", "symbol", "direction"); err != nil {
		return nil, fmt.Errorf("sent ledger %s: %w", l.path, err)
	}

	records := make([]SentRecord, 0, len(t.records))
	for i, rec := range t.records {
		dir, err := models.ParseDirection(t.get(rec, "direction"))
		if err != nil {
			return nil, fmt.Errorf("sent ledger row %d: %w", i+2, err)
		}
		records = append(records, SentRecord{
			Key: models.DedupKey{
				Date:      t.get(rec, "date"),
				Symbol:    t.get(rec, "symbol"),
				Direction: dir,
			},
			Time: t.get(rec, "time"),
		})
	}
	return records, nil
}

// Append adds rows without touching existing ones
func (l *CSVSentLedger) Append(records []SentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return appendRows(l.path, sentLedgerHeader, sentRows(records))
}

// Rewrite replaces the file contents with records
func (l *CSVSentLedger) Rewrite(records []SentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return rewriteRows(l.path, sentLedgerHeader, sentRows(records))
}

func sentRows(records []SentRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Key.Date, r.Key.Symbol, string(r.Key.Direction), r.Time})
	}
	return rows
}
