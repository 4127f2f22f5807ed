package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Metrics struct {
	mu              sync.RWMutex
	RequestCount    int64            `json:"request_count"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoint_calls"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
	totalDuration   time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{
		StatusCodes: make(map[string]int64),
		Endpoints:   make(map[string]int64),
		StartTime:   time.Now(),
	}
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.ActiveRequests++
		m.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		status := fmt.Sprintf("%d", c.Writer.Status())
		endpoint := c.Request.Method + " " + c.FullPath()

		m.mu.Lock()
		m.ActiveRequests--
		m.RequestCount++
		m.totalDuration += duration
		m.LastRequest = time.Now()
		m.StatusCodes[status]++
		m.Endpoints[endpoint]++
		if c.Writer.Status() >= 500 {
			m.ErrorCount++
		}
		m.mu.Unlock()
	}
}

func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var avgMs float64
	if m.RequestCount > 0 {
		avgMs = float64(m.totalDuration.Milliseconds()) / float64(m.RequestCount)
	}

	statusCodes := make(map[string]int64, len(m.StatusCodes))
	for k, v := range m.StatusCodes {
		statusCodes[k] = v
	}
	endpoints := make(map[string]int64, len(m.Endpoints))
	for k, v := range m.Endpoints {
		endpoints[k] = v
	}

	return map[string]interface{}{
		"request_count":   m.RequestCount,
		"active_requests": m.ActiveRequests,
		"error_count":     m.ErrorCount,
		"avg_duration_ms": avgMs,
		"status_codes":    statusCodes,
		"endpoint_calls":  endpoints,
		"uptime_seconds":  time.Since(m.StartTime).Seconds(),
	}
}

type HealthCheckFunc func(ctx context.Context) error

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

// HealthChecker runs registered probes on demand for the health endpoint.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]HealthCheckFunc
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]HealthCheckFunc)}
}

func (h *HealthChecker) Register(name string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executes every registered check; the bool is false if any failed.
func (h *HealthChecker) Run(ctx context.Context) ([]HealthCheck, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	fns := make([]HealthCheckFunc, 0, len(h.checks))
	for name, fn := range h.checks {
		names = append(names, name)
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	results := make([]HealthCheck, 0, len(fns))
	healthy := true
	for i, fn := range fns {
		check := HealthCheck{Name: names[i], Status: "ok", LastRun: time.Now()}
		if err := fn(ctx); err != nil {
			check.Status = "failed"
			check.Message = err.Error()
			healthy = false
		}
		results = append(results, check)
	}
	return results, healthy
}
