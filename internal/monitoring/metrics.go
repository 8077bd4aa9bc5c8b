// Package monitoring collects request counters and runs readiness checks
// for the API process.
package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

const checkTimeout = 5 * time.Second

type Metrics struct {
	RequestCount    int64            `json:"request_count"`
	AvgDurationMs   float64          `json:"avg_request_duration_ms"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoint_calls"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
	totalDuration   time.Duration
}

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

// Monitor owns the request counters and the named readiness checks.
type Monitor struct {
	mu      sync.Mutex
	metrics Metrics
	checks  map[string]HealthCheckFunc
	clock   clockwork.Clock
}

func New(clock clockwork.Clock) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		metrics: Metrics{
			StatusCodes: make(map[string]int64),
			Endpoints:   make(map[string]int64),
			StartTime:   clock.Now(),
		},
		checks: make(map[string]HealthCheckFunc),
		clock:  clock,
	}
}

func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := m.clock.Now()

		m.mu.Lock()
		m.metrics.ActiveRequests++
		m.mu.Unlock()

		c.Next()

		duration := m.clock.Since(start)
		statusCode := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()
		if c.FullPath() == "" {
			endpoint = c.Request.Method + " <unmatched>"
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		m.metrics.RequestCount++
		m.metrics.ActiveRequests--
		m.metrics.totalDuration += duration
		m.metrics.LastRequest = m.clock.Now()
		if statusCode >= 400 {
			m.metrics.ErrorCount++
		}
		m.metrics.StatusCodes[strconv.Itoa(statusCode)]++
		m.metrics.Endpoints[endpoint]++
	}
}

// Snapshot copies the counters so callers can read them without the lock.
func (m *Monitor) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.metrics
	snap.StatusCodes = make(map[string]int64, len(m.metrics.StatusCodes))
	snap.Endpoints = make(map[string]int64, len(m.metrics.Endpoints))
	for k, v := range m.metrics.StatusCodes {
		snap.StatusCodes[k] = v
	}
	for k, v := range m.metrics.Endpoints {
		snap.Endpoints[k] = v
	}
	if snap.RequestCount > 0 {
		avg := snap.totalDuration / time.Duration(snap.RequestCount)
		snap.AvgDurationMs = float64(avg) / float64(time.Millisecond)
	}
	return snap
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc_mb"`
	TotalAlloc uint64 `json:"total_alloc_mb"`
	Sys        uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
}

func (m *Monitor) SystemMetrics() SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return SystemMetrics{
		Uptime: m.clock.Since(m.metrics.StartTime).Round(time.Second).String(),
		MemoryUsage: MemoryStats{
			Alloc:      bToMb(ms.Alloc),
			TotalAlloc: bToMb(ms.TotalAlloc),
			Sys:        bToMb(ms.Sys),
			NumGC:      ms.NumGC,
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// RegisterCheck adds a named readiness check. Checks run on every /ready.
func (m *Monitor) RegisterCheck(name string, check HealthCheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

func (m *Monitor) RunChecks(ctx context.Context) []HealthCheck {
	m.mu.Lock()
	names := make([]string, 0, len(m.checks))
	checks := make(map[string]HealthCheckFunc, len(m.checks))
	for name, fn := range m.checks {
		names = append(names, name)
		checks[name] = fn
	}
	m.mu.Unlock()
	sort.Strings(names)

	results := make([]HealthCheck, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](checkCtx)
		cancel()

		result := HealthCheck{Name: name, Status: "healthy", LastRun: m.clock.Now()}
		if err != nil {
			result.Status = "unhealthy"
			result.Message = err.Error()
		}
		results = append(results, result)
	}
	return results
}

func (m *Monitor) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"application": m.Snapshot(),
			"system":      m.SystemMetrics(),
			"timestamp":   m.clock.Now(),
		})
	}
}

func (m *Monitor) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := m.RunChecks(c.Request.Context())

		status, code := "ready", http.StatusOK
		for _, check := range checks {
			if check.Status != "healthy" {
				status, code = "not ready", http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"checks":    checks,
			"timestamp": m.clock.Now(),
		})
	}
}

func (m *Monitor) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": m.clock.Now(),
			"uptime":    m.clock.Since(m.metrics.StartTime).Round(time.Second).String(),
		})
	}
}
