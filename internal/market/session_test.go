package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/orb-scanner/internal/config"
)

func testCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := NewCalendar(config.MarketConfig{
		Timezone:     "Asia/Kolkata",
		SessionOpen:  "09:15",
		SessionClose: "15:30",
		WindowStart:  "09:15",
		WindowEnd:    "09:30",
		Holidays:     []string{"2025-03-14"},
	})
	require.NoError(t, err)
	return cal
}

func TestWindowBoundsAndContains(t *testing.T) {
	cal := testCalendar(t)
	loc := cal.Location()
	w := cal.OpeningWindow()

	start, end := w.Bounds(time.Date(2025, 3, 10, 13, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 3, 10, 9, 15, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, loc), end)

	assert.True(t, w.Contains(time.Date(2025, 3, 10, 9, 15, 0, 0, loc)))
	assert.True(t, w.Contains(time.Date(2025, 3, 10, 9, 29, 0, 0, loc)))
	assert.False(t, w.Contains(time.Date(2025, 3, 10, 9, 30, 0, 0, loc)))
	assert.Equal(t, "09:15–09:30", w.String())
}

func TestIsTradingDay(t *testing.T) {
	cal := testCalendar(t)
	loc := cal.Location()

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"monday", time.Date(2025, 3, 10, 0, 0, 0, 0, loc), true},
		{"saturday", time.Date(2025, 3, 8, 0, 0, 0, 0, loc), false},
		{"sunday", time.Date(2025, 3, 9, 0, 0, 0, 0, loc), false},
		{"holiday", time.Date(2025, 3, 14, 0, 0, 0, 0, loc), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsTradingDay(tt.day))
		})
	}
}

func TestScanReady(t *testing.T) {
	cal := testCalendar(t)
	loc := cal.Location()

	assert.False(t, cal.ScanReady(time.Date(2025, 3, 10, 9, 20, 0, 0, loc)))
	assert.True(t, cal.ScanReady(time.Date(2025, 3, 10, 9, 30, 0, 0, loc)))
	assert.True(t, cal.ScanReady(time.Date(2025, 3, 10, 15, 30, 0, 0, loc)))
	assert.False(t, cal.ScanReady(time.Date(2025, 3, 10, 15, 31, 0, 0, loc)))
	assert.False(t, cal.ScanReady(time.Date(2025, 3, 8, 11, 0, 0, 0, loc)))
	// 04:30 UTC is 10:00 IST
	assert.True(t, cal.ScanReady(time.Date(2025, 3, 10, 4, 30, 0, 0, time.UTC)))
}

func TestPreviousAndLastTradingDays(t *testing.T) {
	cal := testCalendar(t)
	loc := cal.Location()

	monday := time.Date(2025, 3, 10, 11, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, loc), cal.PreviousTradingDay(monday))

	saturday := time.Date(2025, 3, 15, 0, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, loc), cal.PreviousTradingDay(saturday))

	days := cal.LastTradingDays(saturday, 3)
	require.Len(t, days, 3)
	assert.Equal(t, "2025-03-11", days[0].Format("2006-01-02"))
	assert.Equal(t, "2025-03-13", days[2].Format("2006-01-02"))

	span := cal.TradingDays(time.Date(2025, 3, 7, 0, 0, 0, 0, loc), time.Date(2025, 3, 11, 0, 0, 0, 0, loc))
	assert.Len(t, span, 3)
}

func TestParseWindowRejectsInverted(t *testing.T) {
	_, err := ParseWindow("09:30", "09:15")
	assert.Error(t, err)
}
