package strategy

import (
	"time"

	"github.com/yourusername/orb-scanner/internal/models"
)

// BreakoutParams configures the opening range breakout rule. Both values are
// percentages: 0.1 means 0.1%.
type BreakoutParams struct {
	TolerancePct float64
	MomentumPct  float64
	StrikeStep   float64
}

// DefaultBreakoutParams returns the stock parameters
func DefaultBreakoutParams() BreakoutParams {
	return BreakoutParams{TolerancePct: 0.1, MomentumPct: 2.0, StrikeStep: 50}
}

// Breakout emits BUY above the tolerance-adjusted range high and SELL below the
// range low, each only when the price has also moved far enough from the previous close.
type Breakout struct {
	params BreakoutParams
}

// NewBreakout creates a breakout strategy
func NewBreakout(params BreakoutParams) *Breakout {
	return &Breakout{params: params}
}

// Name returns the strategy name
func (b *Breakout) Name() string {
	return "opening_range_breakout"
}

// GetParameters returns the strategy parameters
func (b *Breakout) GetParameters() map[string]interface{} {
	return map[string]interface{}{
		"breakout_tolerance_pct": b.params.TolerancePct,
		"momentum_threshold_pct": b.params.MomentumPct,
		"strike_step":            b.params.StrikeStep,
	}
}

// Direction classifies price against the snapshot. The boundary itself is not
// a breakout; the momentum threshold itself qualifies.
func (b *Breakout) Direction(snapshot models.RangeSnapshot, price float64) (models.Direction, bool) {
	if !snapshot.HasPrevClose() || price <= 0 {
		return "", false
	}
	prev := *snapshot.PrevClose
	tol := b.params.TolerancePct / 100
	mom := b.params.MomentumPct / 100

	switch {
	case price > snapshot.High*(1+tol):
		if price >= prev*(1+mom) {
			return models.DirectionBuy, true
		}
	case price < snapshot.Low*(1-tol):
		if price <= prev*(1-mom) {
			return models.DirectionSell, true
		}
	}
	return "", false
}

// Evaluate builds the signal for price observed at the given time
func (b *Breakout) Evaluate(snapshot models.RangeSnapshot, price float64, at time.Time) (models.Signal, bool) {
	direction, ok := b.Direction(snapshot, price)
	if !ok {
		return models.Signal{}, false
	}

	signal := models.Signal{
		Symbol:      snapshot.Symbol,
		SessionDate: snapshot.SessionDate,
		Direction:   direction,
		Price:       price,
		Open:        snapshot.Open,
		High:        snapshot.High,
		Low:         snapshot.Low,
		Close:       snapshot.Close,
		PrevClose:   *snapshot.PrevClose,
		TriggeredAt: at,
	}
	if b.params.StrikeStep > 0 {
		suggestion := SuggestOption(signal.Symbol, direction, price, b.params.StrikeStep)
		signal.Strike = suggestion.Strike
		signal.SuggestedAction = suggestion.Action
	}
	return signal, true
}
