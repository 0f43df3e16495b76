package repository

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/orb-scanner/internal/models"
)

var historyHeader = []string{
	"date", "time", "symbol", "direction", "entry_price", "ORH", "ORL",
	"open", "prev_close", "suggested_action", "emitted_at",
}

// CSVHistory is the append-only emission log
type CSVHistory struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

// NewCSVHistory creates a history store backed by path
func NewCSVHistory(path string, loc *time.Location) *CSVHistory {
	return &CSVHistory{path: path, loc: loc}
}

// Path returns the backing file
func (h *CSVHistory) Path() string {
	return h.path
}

// Append writes entries after the existing rows
func (h *CSVHistory) Append(entries []models.EmissionLogEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, historyRow(e, h.loc))
	}
	return appendRows(h.path, historyHeader, rows)
}

// ReadAll returns every entry ordered by date then time; a missing file is empty
func (h *CSVHistory) ReadAll() ([]models.EmissionLogEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.Open(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", h.path, err)
	}
	defer f.Close()

	return ReadHistory(f, h.loc)
}

// ReadHistory parses an emission history or a standalone historical trade
// file. Column names are case-insensitive; entry_close, high and low are
// accepted for entry_price, ORH and ORL.
func ReadHistory(r io.Reader, loc *time.Location) ([]models.EmissionLogEntry, error) {
	t, err := parseTable(r)
	if err != nil {
		return nil, err
	}
	if len(t.records) == 0 {
		return nil, nil
	}

	t.alias("entry_price", "entry_close", "price", "close")
	t.alias("orh", "high")
	t.alias("orl", "low")
	t.alias("direction", "signal")
	if err := t.require("date", "time", "symbol", "direction", "entry_price"); err != nil {
		return nil, err
	}

	entries := make([]models.EmissionLogEntry, 0, len(t.records))
	for i, rec := range t.records {
		e, err := parseHistoryRow(t, rec, loc)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	models.SortChronologically(entries)
	return entries, nil
}

func parseHistoryRow(t *table, rec []string, loc *time.Location) (models.EmissionLogEntry, error) {
	var e models.EmissionLogEntry

	day, err := time.ParseInLocation(models.DateLayout, t.get(rec, "date"), loc)
	if err != nil {
		return e, fmt.Errorf("invalid date %q: %w", t.get(rec, "date"), err)
	}
	clock, err := parseClock(t.get(rec, "time"))
	if err != nil {
		return e, err
	}
	dir, err := models.ParseDirection(t.get(rec, "direction"))
	if err != nil {
		return e, err
	}
	price, err := parseFloat(t.get(rec, "entry_price"), "entry_price")
	if err != nil {
		return e, err
	}

	e.Symbol = strings.ToUpper(t.get(rec, "symbol"))
	e.SessionDate = day
	e.TriggeredAt = day.Add(clock)
	e.Direction = dir
	e.Price = price
	e.SuggestedAction = t.get(rec, "suggested_action")

	for column, dst := range map[string]*float64{"orh": &e.High, "orl": &e.Low, "open": &e.Open, "prev_close": &e.PrevClose} {
		v, err := parseOptionalFloat(t.get(rec, column), column)
		if err != nil {
			return e, err
		}
		if v != nil {
			*dst = *v
		}
	}

	if raw := t.get(rec, "emitted_at"); raw != "" {
		if e.EmittedAt, err = time.Parse(time.RFC3339, raw); err != nil {
			return e, fmt.Errorf("invalid emitted_at %q: %w", raw, err)
		}
	}
	return e, nil
}

func parseClock(raw string) (time.Duration, error) {
	for _, layout := range []string{models.ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", raw)
}

func historyRow(e models.EmissionLogEntry, loc *time.Location) []string {
	emitted := ""
	if !e.EmittedAt.IsZero() {
		emitted = e.EmittedAt.In(loc).Format(time.RFC3339)
	}
	return []string{
		e.SessionDate.Format(models.DateLayout),
		e.TriggeredAt.In(loc).Format(models.ClockLayout),
		e.Symbol,
		string(e.Direction),
		formatPrice(e.Price),
		formatPrice(e.High),
		formatPrice(e.Low),
		formatPrice(e.Open),
		formatPrice(e.PrevClose),
		e.SuggestedAction,
		emitted,
	}
}

// StrongKey identifies a history row for merging: date, time, symbol,
// direction, entry price, ORH and ORL.
func StrongKey(e models.EmissionLogEntry, loc *time.Location) string {
	row := historyRow(e, loc)
	return strings.Join(row[:7], "|")
}
