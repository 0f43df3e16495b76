package backtest

import (
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/orb-scanner/internal/models"
)

// ForwardData is the price data available after a signal
type ForwardData struct {
	// Intraday holds the session's bars, in any order
	Intraday []models.Bar
	// Daily holds daily bars around the session
	Daily []models.Bar
}

// Exit applies policy to signal and returns the entry and exit prices.
// Missing forward data yields models.ErrNoData so the trade is excluded.
func Exit(policy models.ExitPolicy, signal models.Signal, data ForwardData) (float64, float64, error) {
	switch policy {
	case models.ExitNextBar:
		return exitNextBar(signal, data.Intraday)
	case models.ExitNextSessionClose:
		return exitNextSessionClose(signal, data.Daily)
	case models.ExitConstrainedIntraday:
		return exitConstrainedIntraday(signal, data.Intraday)
	default:
		return 0, 0, fmt.Errorf("%w: %q", models.ErrUnknownExitPolicy, policy)
	}
}

// Score closes out signal under policy
func Score(policy models.ExitPolicy, signal models.Signal, data ForwardData) (models.BacktestResult, error) {
	entry, exit, err := Exit(policy, signal, data)
	if err != nil {
		return models.BacktestResult{}, err
	}
	return models.NewBacktestResult(signal, policy, entry, exit)
}

// exitNextBar enters at the open of the first bar after the trigger and
// exits at the session's last close.
func exitNextBar(signal models.Signal, bars []models.Bar) (float64, float64, error) {
	after := barsAfter(signal, bars)
	if len(after) == 0 {
		return 0, 0, fmt.Errorf("%w: no bar after %s for %s", models.ErrNoData, signal.TriggerClock(), signal.Symbol)
	}
	return after[0].Open, after[len(after)-1].Close, nil
}

// exitNextSessionClose enters at the recorded price and exits at the close
// of the first daily bar dated after the session.
func exitNextSessionClose(signal models.Signal, daily []models.Bar) (float64, float64, error) {
	loc := signal.SessionDate.Location()
	session := signal.SessionDate.Format(models.DateLayout)

	var (
		best  models.Bar
		found bool
	)
	for _, bar := range daily {
		if bar.Close <= 0 {
			continue
		}
		if bar.Time.In(loc).Format(models.DateLayout) <= session {
			continue
		}
		if !found || bar.Time.Before(best.Time) {
			best, found = bar, true
		}
	}
	if !found {
		return 0, 0, fmt.Errorf("%w: no session after %s for %s", models.ErrNoData, session, signal.Symbol)
	}
	return signal.Price, best.Close, nil
}

// exitConstrainedIntraday walks the bars after the trigger. A BUY exits at
// the running high when it ever exceeds entry, otherwise at the running low,
// and never below the range low when one is recorded. SELL mirrors this
// against the range high.
func exitConstrainedIntraday(signal models.Signal, bars []models.Bar) (float64, float64, error) {
	after := barsAfter(signal, bars)
	if len(after) == 0 {
		return 0, 0, fmt.Errorf("%w: no bar after %s for %s", models.ErrNoData, signal.TriggerClock(), signal.Symbol)
	}

	entry := signal.Price
	high, low := math.Inf(-1), math.Inf(1)
	for _, bar := range after {
		high = math.Max(high, bar.High)
		low = math.Min(low, bar.Low)
	}

	var exit float64
	switch signal.Direction {
	case models.DirectionBuy:
		exit = low
		if high > entry {
			exit = high
		}
		if signal.Low > 0 {
			exit = math.Max(exit, signal.Low)
		}
	case models.DirectionSell:
		exit = high
		if low < entry {
			exit = low
		}
		if signal.High > 0 {
			exit = math.Min(exit, signal.High)
		}
	default:
		return 0, 0, fmt.Errorf("%w: %q", models.ErrUnknownDirection, signal.Direction)
	}
	return entry, exit, nil
}

// barsAfter returns the valid bars of the signal's session strictly after
// the trigger time, in time order.
func barsAfter(signal models.Signal, bars []models.Bar) []models.Bar {
	loc := signal.SessionDate.Location()
	session := signal.SessionDate.Format(models.DateLayout)
	trigger := signal.TriggeredAt

	out := make([]models.Bar, 0, len(bars))
	for _, bar := range bars {
		if !bar.Valid() || !bar.Time.After(trigger) {
			continue
		}
		if bar.Time.In(loc).Format(models.DateLayout) != session {
			continue
		}
		out = append(out, bar)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
