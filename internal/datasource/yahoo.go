package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
)

const (
	yahooSourceName     = "yahoo"
	defaultYahooBaseURL = "https://query1.finance.yahoo.com"
)

// YahooSource implements BarSource against the Yahoo Finance chart API
type YahooSource struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	logger     logrus.FieldLogger
}

// yahooChartResponse mirrors the subset of /v8/finance/chart we consume
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewYahooSource creates a new Yahoo chart API client
func NewYahooSource(httpClient *RateLimitedHTTPClient, baseURL string, logger logrus.FieldLogger) *YahooSource {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooSource{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Name returns the name of the data source
func (y *YahooSource) Name() string {
	return yahooSourceName
}

// FetchBars retrieves candles for symbol in [from, to)
func (y *YahooSource) FetchBars(ctx context.Context, symbol string, from, to time.Time, interval models.Interval) ([]models.Bar, error) {
	start := time.Now()
	bars, err := y.fetch(ctx, symbol, from, to, interval)
	metrics.RecordFetch(yahooSourceName, ErrorCode(err), time.Since(start).Seconds())
	return bars, err
}

func (y *YahooSource) fetch(ctx context.Context, symbol string, from, to time.Time, interval models.Interval) ([]models.Bar, error) {
	if _, err := interval.Duration(); err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeInvalidData, "unsupported interval", err)
	}

	q := url.Values{}
	q.Set("period1", fmt.Sprintf("%d", from.Unix()))
	q.Set("period2", fmt.Sprintf("%d", to.Unix()))
	q.Set("interval", string(interval))
	q.Set("includePrePost", "false")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(ctx, req)
	if err != nil {
		code := ErrCodeNetworkError
		if ctx.Err() != nil {
			code = ErrCodeTimeout
		}
		return nil, NewDataSourceError(yahooSourceName, code, "failed to fetch chart for "+symbol, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// unknown or delisted symbols come back as 404 with a chart.error body
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, "no chart for "+symbol, nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeAuthenticationFailed, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(yahooSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeInvalidData, "failed to parse response", err)
	}
	if chart.Chart.Error != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, chart.Chart.Error.Description, nil)
	}

	bars := convertChart(chart, from, to)
	if y.logger != nil {
		y.logger.WithFields(logrus.Fields{
			"symbol":   symbol,
			"interval": interval,
			"bars":     len(bars),
		}).Debug("Fetched chart")
	}
	return bars, nil
}

// convertChart zips the parallel arrays, dropping rows with any null price
func convertChart(chart yahooChartResponse, from, to time.Time) []models.Bar {
	if len(chart.Chart.Result) == 0 {
		return nil
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		t := time.Unix(ts, 0)
		if t.Before(from) || !t.Before(to) {
			continue
		}
		bar := models.Bar{Time: t, Open: *o, High: *h, Low: *l, Close: *c}
		if v := at(quote.Volume, i); v != nil {
			bar.Volume = *v
		}
		if bar.Valid() {
			bars = append(bars, bar)
		}
	}
	return bars
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
