package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/orb-scanner/internal/models"
)

const chartFixture = `{"chart":{"result":[{"meta":{"symbol":"TCS.NS"},
"timestamp":[1741578300,1741578360,1741578420,1741578480],
"indicators":{"quote":[{
"open":[100.0,101.0,null,103.0],
"high":[102.0,104.0,105.0,105.0],
"low":[98.0,99.0,100.0,100.0],
"close":[101.0,103.0,104.0,104.0],
"volume":[1000,1100,null,900]}]}}],"error":null}}`

func testClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 1
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.RateLimit = 1000
	return NewRateLimitedHTTPClient(cfg, nil)
}

func TestYahooFetchBars(t *testing.T) {
	var gotPath, gotInterval string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chartFixture)
	}))
	defer server.Close()

	src := NewYahooSource(testClient(), server.URL, nil)
	from := time.Unix(1741578300, 0)
	to := from.Add(time.Hour)

	bars, err := src.FetchBars(context.Background(), "TCS.NS", from, to, models.IntervalOneMinute)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/TCS.NS", gotPath)
	assert.Equal(t, "1m", gotInterval)
	require.Len(t, bars, 3, "row with a null open is dropped")
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 1000.0, bars[0].Volume)
	assert.Equal(t, time.Unix(1741578480, 0), bars[2].Time)
	assert.Equal(t, "yahoo", src.Name())
}

func TestYahooFetchBarsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`)
	}))
	defer server.Close()

	bars, err := NewYahooSource(testClient(), server.URL, nil).
		FetchBars(context.Background(), "X.NS", time.Unix(0, 0), time.Now(), models.IntervalOneDay)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestYahooFetchBarsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"not found", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, ErrCodeNotFound},
		{"rate limited", http.StatusTooManyRequests, "", ErrCodeRateLimitExceeded},
		{"server error", http.StatusBadGateway, "bad gateway", ErrCodeServerError},
		{"malformed", http.StatusOK, "{not json", ErrCodeInvalidData},
		{"chart error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"x","description":"boom"}}}`, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := NewYahooSource(testClient(), server.URL, nil).
				FetchBars(context.Background(), "X.NS", time.Unix(0, 0), time.Now(), models.IntervalOneDay)
			require.Error(t, err)

			var dsErr DataSourceError
			require.True(t, errors.As(err, &dsErr))
			assert.Equal(t, tt.code, dsErr.Code)
			assert.Equal(t, tt.code, ErrorCode(err))
		})
	}
}

func TestYahooRejectsUnknownInterval(t *testing.T) {
	_, err := NewYahooSource(testClient(), "http://127.0.0.1:0", nil).
		FetchBars(context.Background(), "X.NS", time.Unix(0, 0), time.Now(), models.Interval("7m"))
	assert.Equal(t, ErrCodeInvalidData, ErrorCode(err))
}

func TestRateLimitedClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := testClient().Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRateLimitedClientCircuitBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 0
	cfg.RateLimit = 1000
	cfg.CircuitBreakerMax = 2
	cfg.CircuitCooldown = time.Hour
	client := NewRateLimitedHTTPClient(cfg, nil)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), server.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.True(t, client.IsOpen())

	_, err := client.Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
