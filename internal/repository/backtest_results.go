package repository

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/orb-scanner/internal/models"
)

var backtestResultHeader = []string{
	"date", "time", "symbol", "direction", "policy", "entry_price", "exit_price", "pnl_percent", "result",
}

// CSVBacktestResults stores the scored trades of the latest backtest run
type CSVBacktestResults struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

// NewCSVBacktestResults creates a results store backed by path
func NewCSVBacktestResults(path string, loc *time.Location) *CSVBacktestResults {
	return &CSVBacktestResults{path: path, loc: loc}
}

// Path returns the backing file
func (s *CSVBacktestResults) Path() string {
	return s.path
}

// Write replaces the file with results in chronological order
func (s *CSVBacktestResults) Write(results []models.BacktestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]models.BacktestResult(nil), results...)
	models.SortResults(sorted)

	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		rows = append(rows, []string{
			r.Date(),
			r.Time,
			r.Symbol,
			string(r.Direction),
			string(r.Policy),
			formatPrice(r.EntryPrice),
			formatPrice(r.ExitPrice),
			formatPercent(r.PnLPercent),
			string(r.Outcome),
		})
	}
	return rewriteRows(s.path, backtestResultHeader, rows)
}

// ReadAll loads results; a missing file is empty
func (s *CSVBacktestResults) ReadAll() ([]models.BacktestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := readTable(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backtest results %s: %w", s.path, err)
	}
	if len(t.records) == 0 {
		return nil, nil
	}
	t.alias("pnl_percent", "pnl_%", "pnl")
	if err := t.require("date", "symbol", "direction", "entry_price", "exit_price", "pnl_percent"); err != nil {
		return nil, err
	}

	results := make([]models.BacktestResult, 0, len(t.records))
	for i, rec := range t.records {
		r, err := s.parseRow(t, rec)
		if err != nil {
			return nil, fmt.Errorf("backtest results row %d: %w", i+2, err)
		}
		results = append(results, r)
	}
	models.SortResults(results)
	return results, nil
}

func (s *CSVBacktestResults) parseRow(t *table, rec []string) (models.BacktestResult, error) {
	var r models.BacktestResult
	day, err := time.ParseInLocation(models.DateLayout, t.get(rec, "date"), s.loc)
	if err != nil {
		return r, fmt.Errorf("invalid date: %w", err)
	}
	dir, err := models.ParseDirection(t.get(rec, "direction"))
	if err != nil {
		return r, err
	}

	r.SessionDate = day
	r.Time = t.get(rec, "time")
	r.Symbol = t.get(rec, "symbol")
	r.Direction = dir
	if raw := t.get(rec, "policy"); raw != "" {
		if r.Policy, err = models.ParseExitPolicy(raw); err != nil {
			return r, err
		}
	}
	if r.EntryPrice, err = parseFloat(t.get(rec, "entry_price"), "entry_price"); err != nil {
		return r, err
	}
	if r.ExitPrice, err = parseFloat(t.get(rec, "exit_price"), "exit_price"); err != nil {
		return r, err
	}
	if r.PnLPercent, err = parseFloat(t.get(rec, "pnl_percent"), "pnl_percent"); err != nil {
		return r, err
	}

	r.Outcome = models.OutcomeLoss
	if strings.EqualFold(t.get(rec, "result"), string(models.OutcomeWin)) || (t.get(rec, "result") == "" && r.PnLPercent > 0) {
		r.Outcome = models.OutcomeWin
	}
	return r, nil
}
