package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp HealthResponse
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))

	rec, resp := get(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UP", resp.Status)
}

func TestReady_NoChecks(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))

	rec, resp := get(t, s, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", resp.Status)
	assert.NotEmpty(t, resp.Details["timestamp"])
}

func TestReady_Checks(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))
	s.RegisterReadinessCheck("postgres", func(ctx context.Context) error { return nil })
	s.RegisterReadinessCheck("nats", func(ctx context.Context) error { return errors.New("nats: not connected") })

	rec, resp := get(t, s, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", resp.Status)
	assert.Equal(t, "ok", resp.Details["postgres"])
	assert.Equal(t, "nats: not connected", resp.Details["nats"])

	s.RegisterReadinessCheck("nats", func(ctx context.Context) error { return nil })
	rec, resp = get(t, s, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))
	s.RegisterMetricsHandler(promhttp.Handler())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
