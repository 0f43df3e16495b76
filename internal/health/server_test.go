package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndLive(t *testing.T) {
	s := NewServer(Config{ServiceName: "orb-scanner", Version: "1.0.0", Port: "0"})

	for _, path := range []string{"/health", "/live"} {
		rec := serve(t, s, path)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "orb-scanner", resp.Service)
	}
}

func TestReadyReflectsChecks(t *testing.T) {
	s := NewServer(Config{ServiceName: "orb-scanner", Port: "0"})

	rec := serve(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.SetReady(true)
	s.AddCheck("ledger", CheckerFunc(func(ctx context.Context) error { return nil }))
	rec = serve(t, s, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.AddCheck("scheduler", CheckerFunc(func(ctx context.Context) error { return errors.New("stopped") }))
	rec = serve(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["ledger"])
	assert.Equal(t, "error: stopped", resp.Checks["scheduler"])
}

func TestMetricsRoute(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("orb_up 1\n"))
	})
	s := NewServer(Config{Port: "0", MetricsPath: "/prom", MetricsHandler: handler})

	rec := serve(t, s, "/prom")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "orb_up")

	bare := NewServer(Config{Port: "0"})
	assert.Equal(t, http.StatusNotFound, serve(t, bare, "/metrics").Code)
}
