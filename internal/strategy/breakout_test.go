package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/orb-scanner/internal/models"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func snapshot(open, high, low, close float64, prev *float64) models.RangeSnapshot {
	return models.RangeSnapshot{
		Symbol:      "X.NS",
		SessionDate: time.Date(2025, 3, 10, 0, 0, 0, 0, ist),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close,
		PrevClose:   prev,
	}
}

func ptr(v float64) *float64 { return &v }

func TestBreakoutScenarios(t *testing.T) {
	b := NewBreakout(DefaultBreakoutParams())
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, ist)

	tests := []struct {
		name  string
		snap  models.RangeSnapshot
		price float64
		want  models.Direction
		ok    bool
	}{
		{"breakout with momentum is BUY", snapshot(100, 105, 98, 104, ptr(95)), 110, models.DirectionBuy, true},
		{"inside the range is nothing", snapshot(100, 105, 98, 104, ptr(95)), 99, "", false},
		{"breakout without momentum is nothing", snapshot(100, 105, 98, 104, ptr(108)), 106, "", false},
		{"breakdown with momentum is SELL", snapshot(100, 105, 98, 104, ptr(102)), 90, models.DirectionSell, true},
		{"breakdown without momentum is nothing", snapshot(100, 105, 98, 104, ptr(91)), 90, "", false},
		{"missing prev close is nothing", snapshot(100, 105, 98, 104, nil), 110, "", false},
		{"zero prev close is nothing", snapshot(100, 105, 98, 104, ptr(0)), 110, "", false},
		{"non-positive price is nothing", snapshot(100, 105, 98, 104, ptr(95)), 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, ok := b.Evaluate(tt.snap, tt.price, at)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.want, signal.Direction)
			assert.Equal(t, tt.price, signal.Price)
			assert.Equal(t, tt.snap.High, signal.High)
			assert.Equal(t, tt.snap.Low, signal.Low)
			assert.Equal(t, *tt.snap.PrevClose, signal.PrevClose)
			assert.Equal(t, at, signal.TriggeredAt)
		})
	}
}

func TestBreakoutBoundaries(t *testing.T) {
	params := DefaultBreakoutParams()
	b := NewBreakout(params)

	t.Run("price exactly at the tolerance boundary is not a breakout", func(t *testing.T) {
		high := 105.0
		boundary := high * (1 + params.TolerancePct/100)
		_, ok := b.Direction(snapshot(100, high, 98, 104, ptr(50)), boundary)
		assert.False(t, ok)

		low := 98.0
		lower := low * (1 - params.TolerancePct/100)
		_, ok = b.Direction(snapshot(100, 105, low, 104, ptr(200)), lower)
		assert.False(t, ok)
	})

	t.Run("price exactly at the momentum threshold qualifies", func(t *testing.T) {
		prev := 100.0
		price := prev * (1 + params.MomentumPct/100)
		dir, ok := b.Direction(snapshot(99, 100, 98, 99, ptr(prev)), price)
		require.True(t, ok)
		assert.Equal(t, models.DirectionBuy, dir)

		price = prev * (1 - params.MomentumPct/100)
		dir, ok = b.Direction(snapshot(99, 100, 98.5, 99, ptr(prev)), price)
		require.True(t, ok)
		assert.Equal(t, models.DirectionSell, dir)
	})

	t.Run("zero tolerance compares against the raw range", func(t *testing.T) {
		zero := NewBreakout(BreakoutParams{TolerancePct: 0, MomentumPct: 0})
		_, ok := zero.Direction(snapshot(100, 105, 98, 104, ptr(95)), 105)
		assert.False(t, ok)
		dir, ok := zero.Direction(snapshot(100, 105, 98, 104, ptr(95)), 105.01)
		require.True(t, ok)
		assert.Equal(t, models.DirectionBuy, dir)
	})
}

func TestBreakoutIsDeterministic(t *testing.T) {
	b := NewBreakout(DefaultBreakoutParams())
	snap := snapshot(100, 105, 98, 104, ptr(95))
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, ist)

	first, _ := b.Evaluate(snap, 110, at)
	second, _ := b.Evaluate(snap, 110, at)
	assert.Equal(t, first, second)
}

func TestEvaluateAttachesOptionSuggestion(t *testing.T) {
	b := NewBreakout(DefaultBreakoutParams())
	snap := snapshot(2400, 2450, 2390, 2440, ptr(2380))
	snap.Symbol = "RELIANCE.NS"

	signal, ok := b.Evaluate(snap, 2480, time.Date(2025, 3, 10, 10, 0, 0, 0, ist))
	require.True(t, ok)
	assert.Equal(t, 2500.0, signal.Strike)
	assert.Equal(t, "BUY RELIANCE CALL near 2500 strike", signal.SuggestedAction)
	assert.Equal(t, models.DedupKey{Date: "2025-03-10", Symbol: "RELIANCE.NS", Direction: models.DirectionBuy}, signal.Key())
}

func TestSuggestOption(t *testing.T) {
	tests := []struct {
		price  float64
		dir    models.Direction
		strike float64
		action string
	}{
		{1012, models.DirectionBuy, 1000, "BUY TCS CALL near 1000 strike"},
		{1030, models.DirectionSell, 1050, "BUY TCS PUT near 1050 strike"},
		{1025, models.DirectionBuy, 1000, "BUY TCS CALL near 1000 strike"},
		{1075, models.DirectionBuy, 1100, "BUY TCS CALL near 1100 strike"},
	}
	for _, tt := range tests {
		got := SuggestOption("TCS.NS", tt.dir, tt.price, 50)
		assert.Equal(t, tt.strike, got.Strike)
		assert.Equal(t, tt.action, got.Action)
	}
	assert.Equal(t, "NIFTY", DisplaySymbol("NIFTY"))
}
