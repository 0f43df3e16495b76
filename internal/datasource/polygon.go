package datasource

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/iter"
	polygonmodels "github.com/polygon-io/client-go/rest/models"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
)

const (
	polygonSourceName = "polygon"
	polygonPageLimit  = 50000
)

// aggLister is the slice of the Polygon REST client used here
type aggLister interface {
	ListAggs(ctx context.Context, params *polygonmodels.ListAggsParams, options ...polygonmodels.RequestOption) *iter.Iter[polygonmodels.Agg]
}

// PolygonSource implements BarSource on top of Polygon aggregates
type PolygonSource struct {
	client aggLister
	logger logrus.FieldLogger
}

// NewPolygonSource creates a Polygon aggregates client
func NewPolygonSource(apiKey string, logger logrus.FieldLogger) *PolygonSource {
	return &PolygonSource{client: polygon.New(apiKey), logger: logger}
}

// Name returns the name of the data source
func (p *PolygonSource) Name() string {
	return polygonSourceName
}

// polygonSpan maps an interval onto Polygon's multiplier and timespan
func polygonSpan(interval models.Interval) (int, polygonmodels.Timespan, error) {
	switch interval {
	case models.IntervalOneMinute:
		return 1, polygonmodels.Minute, nil
	case models.IntervalFiveMinute:
		return 5, polygonmodels.Minute, nil
	case models.IntervalFifteen:
		return 15, polygonmodels.Minute, nil
	case models.IntervalOneHour:
		return 1, polygonmodels.Hour, nil
	case models.IntervalOneDay:
		return 1, polygonmodels.Day, nil
	default:
		return 0, "", fmt.Errorf("unsupported interval %q", string(interval))
	}
}

// FetchBars retrieves aggregates for symbol in [from, to)
func (p *PolygonSource) FetchBars(ctx context.Context, symbol string, from, to time.Time, interval models.Interval) ([]models.Bar, error) {
	start := time.Now()
	bars, err := p.fetch(ctx, symbol, from, to, interval)
	metrics.RecordFetch(polygonSourceName, ErrorCode(err), time.Since(start).Seconds())
	return bars, err
}

func (p *PolygonSource) fetch(ctx context.Context, symbol string, from, to time.Time, interval models.Interval) ([]models.Bar, error) {
	multiplier, timespan, err := polygonSpan(interval)
	if err != nil {
		return nil, NewDataSourceError(polygonSourceName, ErrCodeInvalidData, "unsupported interval", err)
	}

	params := polygonmodels.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       polygonmodels.Millis(from),
		To:         polygonmodels.Millis(to),
	}.
		WithAdjusted(true).
		WithOrder(polygonmodels.Asc).
		WithLimit(polygonPageLimit)

	it := p.client.ListAggs(ctx, params)
	var bars []models.Bar
	for it.Next() {
		agg := it.Item()
		bar := models.Bar{
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}
		if bar.Time.Before(from) || !bar.Time.Before(to) || !bar.Valid() {
			continue
		}
		bars = append(bars, bar)
	}
	if err := it.Err(); err != nil {
		code := ErrCodeNetworkError
		if ctx.Err() != nil {
			code = ErrCodeTimeout
		}
		return nil, NewDataSourceError(polygonSourceName, code, "failed to list aggregates for "+symbol, err)
	}

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{"symbol": symbol, "bars": len(bars)}).Debug("Fetched aggregates")
	}
	return bars, nil
}
