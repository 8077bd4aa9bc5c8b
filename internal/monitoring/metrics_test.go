package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(m *Monitor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/ready", m.ReadinessHandler())
	router.GET("/live", m.LivenessHandler())
	router.GET("/metrics", m.MetricsHandler())
	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMonitor_CountsRequests(t *testing.T) {
	m := New(clockwork.NewFakeClock())
	router := newRouter(m)

	get(router, "/ok")
	get(router, "/ok")
	get(router, "/boom")
	get(router, "/nowhere")

	snap := m.Snapshot()
	assert.EqualValues(t, 4, snap.RequestCount)
	assert.EqualValues(t, 2, snap.ErrorCount)
	assert.EqualValues(t, 0, snap.ActiveRequests)
	assert.EqualValues(t, 2, snap.StatusCodes["200"])
	assert.EqualValues(t, 1, snap.StatusCodes["500"])
	assert.EqualValues(t, 2, snap.Endpoints["GET /ok"])
	assert.EqualValues(t, 1, snap.Endpoints["GET <unmatched>"])
}

func TestMonitor_Readiness(t *testing.T) {
	m := New(clockwork.NewFakeClock())
	router := newRouter(m)

	m.RegisterCheck("database", func(context.Context) error { return nil })
	w := get(router, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	m.RegisterCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	w = get(router, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string        `json:"status"`
		Checks []HealthCheck `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body.Status)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "database", body.Checks[0].Name)
	assert.Equal(t, "unhealthy", body.Checks[1].Status)
	assert.Equal(t, "connection refused", body.Checks[1].Message)
}

func TestMonitor_LiveAndMetrics(t *testing.T) {
	m := New(clockwork.NewFakeClock())
	router := newRouter(m)

	assert.Equal(t, http.StatusOK, get(router, "/live").Code)

	w := get(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "application")
	assert.Contains(t, body, "system")
}
