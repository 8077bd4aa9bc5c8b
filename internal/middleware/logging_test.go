package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pm-bot/backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_AssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(middleware.RequestLogger(zap.New(core)))
	router.GET("/tasks", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(middleware.RequestIDKey))
	})

	req, _ := http.NewRequest("GET", "/tasks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	id := w.Header().Get(middleware.RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/tasks", fields["path"])
	assert.EqualValues(t, 200, fields["status"])
	assert.Equal(t, id, fields["request_id"])
}

func TestRequestLogger_ReusesIncomingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(middleware.RequestLogger(zap.New(core)))
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	req, _ := http.NewRequest("GET", "/missing", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, entries, 1)
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.NewRateLimiter(1, 2).Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
}
