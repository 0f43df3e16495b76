package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBacktestResult(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	at := day.Add(9*time.Hour + 40*time.Minute)

	tests := []struct {
		name      string
		direction Direction
		entry     float64
		exit      float64
		pnl       float64
		outcome   Outcome
	}{
		{"buy gains", DirectionBuy, 100, 102, 2, OutcomeWin},
		{"buy loses", DirectionBuy, 100, 99, -1, OutcomeLoss},
		{"sell gains", DirectionSell, 100, 97, 3, OutcomeWin},
		{"sell loses", DirectionSell, 100, 101, -1, OutcomeLoss},
		{"flat is a loss", DirectionBuy, 100, 100, 0, OutcomeLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Signal{Symbol: "X", SessionDate: day, Direction: tt.direction, TriggeredAt: at}
			res, err := NewBacktestResult(sig, ExitNextBar, tt.entry, tt.exit)
			require.NoError(t, err)
			assert.InDelta(t, tt.pnl, res.PnLPercent, 1e-9)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, "09:40:00", res.Time)
			assert.Equal(t, "2025-03-10", res.Date())
		})
	}
}

func TestNewBacktestResultRejectsBadPrices(t *testing.T) {
	sig := Signal{Symbol: "X", Direction: DirectionBuy}
	_, err := NewBacktestResult(sig, ExitNextBar, 0, 10)
	assert.True(t, errors.Is(err, ErrInvalidPrice))

	sig.Direction = "HOLD"
	_, err = NewBacktestResult(sig, ExitNextBar, 10, 10)
	assert.True(t, errors.Is(err, ErrUnknownDirection))
}

func TestParseExitPolicy(t *testing.T) {
	p, err := ParseExitPolicy(" Constrained_Intraday ")
	require.NoError(t, err)
	assert.Equal(t, ExitConstrainedIntraday, p)

	_, err = ParseExitPolicy("trailing_stop")
	assert.True(t, errors.Is(err, ErrUnknownExitPolicy))
}

func TestSnapshotValidate(t *testing.T) {
	snap := RangeSnapshot{Symbol: "X", Open: 100, High: 105, Low: 98, Close: 104}
	require.NoError(t, snap.Validate())
	assert.False(t, snap.HasPrevClose())
	assert.True(t, snap.WithPrevClose(95).HasPrevClose())

	snap.High = 99
	assert.True(t, errors.Is(snap.Validate(), ErrInvalidSnapshot))
}

func TestSortResults(t *testing.T) {
	d1 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	results := []BacktestResult{
		{Symbol: "C", SessionDate: d2, Time: "09:20:00"},
		{Symbol: "B", SessionDate: d1, Time: "10:00:00"},
		{Symbol: "A", SessionDate: d1, Time: "09:30:00"},
	}
	SortResults(results)
	assert.Equal(t, []string{"A", "B", "C"}, []string{results[0].Symbol, results[1].Symbol, results[2].Symbol})
}
