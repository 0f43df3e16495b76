package strategy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yourusername/orb-scanner/internal/market"
	"github.com/yourusername/orb-scanner/internal/models"
)

// BuildSnapshot aggregates the bars of one symbol that fall inside window on
// day. Bars are bucketed by their timestamp in day's location. An empty window
// yields models.ErrNoData.
func BuildSnapshot(symbol string, bars []models.Bar, day time.Time, window market.Window, prevClose *float64) (models.RangeSnapshot, error) {
	start, end := window.Bounds(day)

	snap := models.RangeSnapshot{
		Symbol:      strings.ToUpper(symbol),
		SessionDate: models.SessionDay(day, day.Location()),
		Low:         math.Inf(1),
	}
	var first, last time.Time
	found := false
	for _, bar := range bars {
		t := bar.Time.In(day.Location())
		if t.Before(start) || !t.Before(end) || !bar.Valid() {
			continue
		}
		if !found || t.Before(first) {
			first = t
			snap.Open = bar.Open
		}
		if !found || !t.Before(last) {
			last = t
			snap.Close = bar.Close
		}
		snap.High = math.Max(snap.High, bar.High)
		snap.Low = math.Min(snap.Low, bar.Low)
		found = true
	}
	if !found {
		return models.RangeSnapshot{}, fmt.Errorf("%w: %s has no bars in %s on %s", models.ErrNoData, symbol, window, day.Format(models.DateLayout))
	}

	if prevClose != nil && *prevClose > 0 {
		snap = snap.WithPrevClose(*prevClose)
	}
	if err := snap.Validate(); err != nil {
		return models.RangeSnapshot{}, err
	}
	return snap, nil
}

// PreviousClose returns the close of the latest daily bar dated strictly before day
func PreviousClose(daily []models.Bar, day time.Time) (float64, error) {
	target := day.Format(models.DateLayout)
	var (
		best     time.Time
		prev     float64
		assigned bool
	)
	for _, bar := range daily {
		if bar.Close <= 0 {
			continue
		}
		t := bar.Time.In(day.Location())
		if t.Format(models.DateLayout) >= target {
			continue
		}
		if !assigned || t.After(best) {
			best, prev, assigned = t, bar.Close, true
		}
	}
	if !assigned {
		return 0, fmt.Errorf("%w: before %s", models.ErrMissingPrevClose, target)
	}
	return prev, nil
}

// LatestPrice returns the close of the most recent valid bar at or before cutoff
func LatestPrice(bars []models.Bar, cutoff time.Time) (models.Bar, error) {
	var latest models.Bar
	found := false
	for _, bar := range bars {
		if bar.Close <= 0 || bar.Time.After(cutoff) {
			continue
		}
		if !found || !bar.Time.Before(latest.Time) {
			latest = bar
			found = true
		}
	}
	if !found {
		return models.Bar{}, models.ErrNoData
	}
	return latest, nil
}
