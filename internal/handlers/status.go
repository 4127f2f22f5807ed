package handlers

import (
	"net/http"

	"taskie/backend/internal/gateway"
	"taskie/backend/internal/monitoring"
	"taskie/backend/internal/recon"
	"taskie/backend/internal/store"
	"taskie/backend/internal/worker"

	"github.com/gin-gonic/gin"
)

// StatusHandler exposes the persistence mode, cache health and request
// metrics, and accepts report-email jobs.
type StatusHandler struct {
	svc     *recon.Service
	tasks   *store.TaskStore
	cached  *gateway.CachedGateway
	metrics *monitoring.Metrics
	health  *monitoring.HealthChecker
	queue   *worker.JobQueue
}

func NewStatusHandler(svc *recon.Service, tasks *store.TaskStore, cached *gateway.CachedGateway,
	metrics *monitoring.Metrics, health *monitoring.HealthChecker, queue *worker.JobQueue) *StatusHandler {
	return &StatusHandler{
		svc:     svc,
		tasks:   tasks,
		cached:  cached,
		metrics: metrics,
		health:  health,
		queue:   queue,
	}
}

func (h *StatusHandler) GetStatus(c *gin.Context) {
	status := gin.H{
		"mode":  h.svc.Mode().String(),
		"error": h.tasks.Err(),
	}
	if h.cached != nil {
		status["cache"] = h.cached.Stats()
	}
	if h.metrics != nil {
		status["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, status)
}

func (h *StatusHandler) GetHealth(c *gin.Context) {
	checks, healthy := h.health.Run(c.Request.Context())

	code := http.StatusOK
	state := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "checks": checks})
}

func (h *StatusHandler) EmailReport(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var reportInput struct {
		To string `json:"to" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&reportInput); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report queue not available"})
		return
	}

	err := h.queue.Enqueue("reports", worker.JobTypeReportEmail, map[string]interface{}{
		"owner_id": userID,
		"to":       reportInput.To,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue report"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "report queued"})
}
