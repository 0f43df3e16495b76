package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/strategy"
)

// Replay rebuilds opening ranges from intraday bars over the configured
// lookback ending at asOf. For each day the previous replayed day's last
// close is the reference close, the first bar after the window whose close
// qualifies becomes the signal, and it is scored under every policy.
func (e *Engine) Replay(ctx context.Context, symbols []string, asOf time.Time) (*Run, error) {
	if e.strategy == nil {
		return nil, fmt.Errorf("replay requires a strategy")
	}
	run := e.newRun(ModeReplay)

	// one extra day supplies the first reference close
	days := e.calendar.LastTradingDays(asOf, e.config.LookbackDays+1)
	e.logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"symbols": len(symbols),
		"days":    len(days),
	}).Info("Starting bar replay")

	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			metrics.RecordBacktestRun(run.Mode, "failure", time.Since(run.StartedAt).Seconds())
			return nil, err
		}
		if err := e.replaySymbol(ctx, run, sym, days); err != nil {
			if ctx.Err() != nil {
				metrics.RecordBacktestRun(run.Mode, "failure", time.Since(run.StartedAt).Seconds())
				return nil, ctx.Err()
			}
			e.logger.WithError(err).WithField("symbol", sym).Warn("Replay skipped symbol")
		}
	}

	e.finish(run)
	return run, nil
}

func (e *Engine) replaySymbol(ctx context.Context, run *Run, symbol string, days []time.Time) error {
	if len(days) < 2 {
		return fmt.Errorf("%w: need at least two trading days", models.ErrNoData)
	}
	from, _ := e.calendar.Session().Bounds(days[0])
	_, to := e.calendar.Session().Bounds(days[len(days)-1])

	bars, err := e.fetch(ctx, symbol, from, to, e.config.ReplayInterval)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: no intraday bars for %s", models.ErrNoData, symbol)
	}

	loc := e.calendar.Location()
	byDay := groupByDay(bars, loc)
	daily := syntheticDaily(days, byDay)

	for i := 1; i < len(days); i++ {
		prevBars := byDay[days[i-1].Format(models.DateLayout)]
		dayBars := byDay[days[i].Format(models.DateLayout)]
		if len(prevBars) == 0 || len(dayBars) == 0 {
			continue
		}
		prevClose := prevBars[len(prevBars)-1].Close

		snap, err := strategy.BuildSnapshot(symbol, dayBars, days[i], e.config.ReplayWindow, &prevClose)
		if err != nil {
			continue
		}
		signal, ok := e.firstSignal(snap, dayBars, days[i])
		if !ok {
			continue
		}
		e.scoreSignal(run, signal, ForwardData{Intraday: dayBars, Daily: daily})
	}
	return nil
}

// firstSignal returns the first bar at or after the window end whose close
// breaks out. The bar's open time is the trigger time.
func (e *Engine) firstSignal(snap models.RangeSnapshot, bars []models.Bar, day time.Time) (models.Signal, bool) {
	_, windowEnd := e.config.ReplayWindow.Bounds(day)
	for _, bar := range bars {
		if bar.Time.Before(windowEnd) {
			continue
		}
		if signal, ok := e.strategy.Evaluate(snap, bar.Close, bar.Time.In(day.Location())); ok {
			return signal, true
		}
	}
	return models.Signal{}, false
}

// syntheticDaily condenses each replayed day into one daily bar
func syntheticDaily(days []time.Time, byDay map[string][]models.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(days))
	for _, day := range days {
		bars := byDay[day.Format(models.DateLayout)]
		if len(bars) == 0 {
			continue
		}
		d := models.Bar{Time: day, Open: bars[0].Open, High: bars[0].High, Low: bars[0].Low, Close: bars[len(bars)-1].Close}
		for _, b := range bars {
			if b.High > d.High {
				d.High = b.High
			}
			if b.Low < d.Low {
				d.Low = b.Low
			}
			d.Volume += b.Volume
		}
		out = append(out, d)
	}
	return out
}
