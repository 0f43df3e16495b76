package repository

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yourusername/orb-scanner/internal/models"
)

var rangeCacheHeader = []string{"symbol", "open", "high", "low", "close", "prev_close", "date"}

// CSVRangeCache stores one day's opening ranges, replaced wholesale each day
type CSVRangeCache struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

// NewCSVRangeCache creates a range cache backed by path
func NewCSVRangeCache(path string, loc *time.Location) *CSVRangeCache {
	return &CSVRangeCache{path: path, loc: loc}
}

// Save overwrites the cache with snapshots for day
func (c *CSVRangeCache) Save(day time.Time, snapshots []models.RangeSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	date := day.In(c.loc).Format(models.DateLayout)
	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		prev := ""
		if s.HasPrevClose() {
			prev = formatPrice(*s.PrevClose)
		}
		rows = append(rows, []string{
			s.Symbol,
			formatPrice(s.Open),
			formatPrice(s.High),
			formatPrice(s.Low),
			formatPrice(s.Close),
			prev,
			date,
		})
	}
	return rewriteRows(c.path, rangeCacheHeader, rows)
}

// Load returns the cached snapshots when every row belongs to day
func (c *CSVRangeCache) Load(day time.Time) ([]models.RangeSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := readTable(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read range cache %s: %w", c.path, err)
	}
	if err := t.require("symbol", "open", "high", "low", "close", "date"); err != nil {
		// an old or foreign file; treat as absent so it gets rebuilt
		return nil, models.ErrNotFound
	}
	if len(t.records) == 0 {
		return nil, models.ErrNotFound
	}

	want := day.In(c.loc).Format(models.DateLayout)
	sessionDate := models.SessionDay(day, c.loc)
	snapshots := make([]models.RangeSnapshot, 0, len(t.records))
	for i, rec := range t.records {
		if t.get(rec, "date") != want {
			return nil, models.ErrNotFound
		}
		snap, err := parseSnapshot(t, rec, sessionDate)
		if err != nil {
			return nil, fmt.Errorf("range cache row %d: %w", i+2, err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func parseSnapshot(t *table, rec []string, sessionDate time.Time) (models.RangeSnapshot, error) {
	snap := models.RangeSnapshot{Symbol: t.get(rec, "symbol"), SessionDate: sessionDate}
	var err error
	if snap.Open, err = parseFloat(t.get(rec, "open"), "open"); err != nil {
		return snap, err
	}
	if snap.High, err = parseFloat(t.get(rec, "high"), "high"); err != nil {
		return snap, err
	}
	if snap.Low, err = parseFloat(t.get(rec, "low"), "low"); err != nil {
		return snap, err
	}
	if snap.Close, err = parseFloat(t.get(rec, "close"), "close"); err != nil {
		return snap, err
	}
	if snap.PrevClose, err = parseOptionalFloat(t.get(rec, "prev_close"), "prev_close"); err != nil {
		return snap, err
	}
	return snap, snap.Validate()
}
