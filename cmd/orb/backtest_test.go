package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/orb-scanner/internal/config"
	"github.com/yourusername/orb-scanner/internal/market"
)

func replayCalendar(t *testing.T) *market.Calendar {
	t.Helper()
	cal, err := market.NewCalendar(config.MarketConfig{
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

func TestReplayEndExcludesAsOfDay(t *testing.T) {
	cal := replayCalendar(t)
	loc := cal.Location()

	// mid-session Wednesday: today's partial session is not replayed
	now := time.Date(2025, 3, 12, 11, 0, 0, 0, loc)
	end, err := replayEnd(cal, "", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", end.Format("2006-01-02"))

	// Monday steps back over the weekend
	end, err = replayEnd(cal, "2025-03-10", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-07", end.Format("2006-01-02"))

	// Saturday after a Friday holiday
	end, err = replayEnd(cal, "2025-03-15", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-13", end.Format("2006-01-02"))
}

func TestReplayEndRejectsBadDate(t *testing.T) {
	_, err := replayEnd(replayCalendar(t), "12/03/2025", time.Now())
	assert.ErrorContains(t, err, "invalid --as-of date")
}
