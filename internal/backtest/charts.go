package backtest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/yourusername/orb-scanner/internal/models"
)

// RenderEquityCurve writes a PNG of cumulative P&L per trade
func RenderEquityCurve(results []models.BacktestResult, path string) error {
	curve := BuildEquityCurve(results)
	if len(curve) == 0 {
		return fmt.Errorf("%w: no trades to plot", models.ErrNoData)
	}

	xs := []float64{0}
	ys := []float64{0}
	for _, p := range curve {
		xs = append(xs, float64(p.Trade))
		ys = append(ys, p.Value)
	}
	final := curve.Final()

	graph := chart.Chart{
		Title: "Equity Curve: Intraday ORB Strategy",
		XAxis: chart.XAxis{
			Name:  "Trade Number",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(curve))},
		},
		YAxis: chart.YAxis{
			Name:  "Cumulative PnL (%)",
			Range: paddedRange(ys),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Cumulative Return",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2.5,
				},
			},
			chart.AnnotationSeries{
				Annotations: []chart.Value2{
					{XValue: float64(len(curve)), YValue: final, Label: fmt.Sprintf("%.2f%%", final)},
				},
			},
		},
	}
	return renderPNG(&graph, path)
}

// RenderPortfolioCurve writes a PNG of daily P&L with the running total
func RenderPortfolioCurve(results []models.BacktestResult, path string) error {
	daily := DailyPortfolio(results)
	if len(daily) == 0 {
		return fmt.Errorf("%w: no trades to plot", models.ErrNoData)
	}

	xs := make([]float64, 0, len(daily))
	pnl := make([]float64, 0, len(daily))
	cumulative := make([]float64, 0, len(daily))
	ticks := make([]chart.Tick, 0, len(daily))
	for i, d := range daily {
		xs = append(xs, float64(i))
		pnl = append(pnl, d.PnL)
		cumulative = append(cumulative, d.Cumulative)
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: tickLabel(d.Date)})
	}

	graph := chart.Chart{
		Title: "Portfolio Performance: Daily & Cumulative PnL",
		XAxis: chart.XAxis{
			Name:  "Date",
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(daily)) - 0.5},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  "Daily PnL (%)",
			Range: paddedRange(pnl),
		},
		YAxisSecondary: chart.YAxis{
			Name:  "Cumulative PnL (%)",
			Range: paddedRange(cumulative),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Daily PnL (%)",
				XValues: xs,
				YValues: pnl,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    6,
					DotColor:    chart.ColorCyan,
				},
			},
			chart.ContinuousSeries{
				Name:    "Cumulative PnL (%)",
				YAxis:   chart.YAxisSecondary,
				XValues: xs,
				YValues: cumulative,
				Style: chart.Style{
					StrokeColor: chart.ColorOrange,
					StrokeWidth: 2.5,
					DotWidth:    4,
					DotColor:    chart.ColorOrange,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderPNG(&graph, path)
}

// paddedRange keeps zero in view with half a point of headroom
func paddedRange(values []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return &chart.ContinuousRange{Min: math.Min(0, lo-0.5), Max: math.Max(0, hi) + 0.5}
}

func tickLabel(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Jan 02")
}

func renderPNG(graph *chart.Chart, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
