package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/orb-scanner/internal/market"
	"github.com/yourusername/orb-scanner/internal/models"
)

func bar(h, m int, o, hi, lo, c float64) models.Bar {
	return models.Bar{Time: time.Date(2025, 3, 10, h, m, 0, 0, ist), Open: o, High: hi, Low: lo, Close: c}
}

func TestBuildSnapshot(t *testing.T) {
	window, err := market.ParseWindow("09:15", "09:30")
	require.NoError(t, err)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, ist)

	bars := []models.Bar{
		bar(9, 10, 90, 91, 89, 90),
		bar(9, 20, 101, 104, 99, 103),
		bar(9, 15, 100, 102, 98, 101),
		bar(9, 25, 103, 105, 100, 104),
		bar(9, 30, 104, 120, 80, 110),
	}

	snap, err := BuildSnapshot("x.ns", bars, day, window, ptr(95))
	require.NoError(t, err)
	assert.Equal(t, "X.NS", snap.Symbol)
	assert.Equal(t, 100.0, snap.Open)
	assert.Equal(t, 105.0, snap.High)
	assert.Equal(t, 98.0, snap.Low)
	assert.Equal(t, 104.0, snap.Close)
	require.NotNil(t, snap.PrevClose)
	assert.Equal(t, 95.0, *snap.PrevClose)
	assert.Equal(t, "2025-03-10", snap.Date())
}

func TestBuildSnapshotBucketsByExchangeTime(t *testing.T) {
	window, err := market.ParseWindow("09:15", "09:30")
	require.NoError(t, err)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, ist)

	// 03:50 UTC is 09:20 IST
	utcBar := models.Bar{Time: time.Date(2025, 3, 10, 3, 50, 0, 0, time.UTC), Open: 10, High: 12, Low: 9, Close: 11}
	snap, err := BuildSnapshot("Y.NS", []models.Bar{utcBar}, day, window, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.0, snap.High)
	assert.Nil(t, snap.PrevClose)
}

func TestBuildSnapshotEmptyWindow(t *testing.T) {
	window, err := market.ParseWindow("09:15", "09:30")
	require.NoError(t, err)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, ist)

	_, err = BuildSnapshot("X.NS", []models.Bar{bar(10, 0, 1, 2, 1, 2)}, day, window, nil)
	assert.True(t, errors.Is(err, models.ErrNoData))

	_, err = BuildSnapshot("X.NS", nil, day, window, nil)
	assert.True(t, errors.Is(err, models.ErrNoData))
}

func TestPreviousClose(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, ist)
	daily := []models.Bar{
		{Time: time.Date(2025, 3, 6, 0, 0, 0, 0, ist), Close: 94},
		{Time: time.Date(2025, 3, 7, 0, 0, 0, 0, ist), Close: 95},
		{Time: time.Date(2025, 3, 10, 0, 0, 0, 0, ist), Close: 99},
	}

	prev, err := PreviousClose(daily, day)
	require.NoError(t, err)
	assert.Equal(t, 95.0, prev)

	_, err = PreviousClose(daily[2:], day)
	assert.True(t, errors.Is(err, models.ErrMissingPrevClose))
}

func TestLatestPrice(t *testing.T) {
	bars := []models.Bar{bar(9, 15, 1, 1, 1, 100), bar(10, 0, 1, 1, 1, 110), bar(10, 5, 1, 1, 1, 111)}

	latest, err := LatestPrice(bars, time.Date(2025, 3, 10, 10, 2, 0, 0, ist))
	require.NoError(t, err)
	assert.Equal(t, 110.0, latest.Close)

	_, err = LatestPrice(bars, time.Date(2025, 3, 10, 9, 0, 0, 0, ist))
	assert.ErrorIs(t, err, models.ErrNoData)
}
