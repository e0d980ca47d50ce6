package handlers

import (
	"net/http"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/health"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

type HealthHandler struct {
	checker *health.HealthChecker
	maxAge  time.Duration
}

// NewHealthHandler serves snapshots younger than maxAge without re-probing.
func NewHealthHandler(checker *health.HealthChecker, maxAge time.Duration) *HealthHandler {
	return &HealthHandler{checker: checker, maxAge: maxAge}
}

func (h *HealthHandler) HandleHealth(c *gin.Context) {
	overall := h.checker.CheckCached(c.Request.Context(), h.maxAge)

	code := http.StatusOK
	if overall.Status != health.StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	dependencies := overall.Dependencies
	if dependencies == nil {
		dependencies = []models.ServiceHealth{}
	}

	c.JSON(code, models.HealthResponse{
		Status:       overall.Status,
		Service:      ServiceName,
		Version:      Version,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Uptime:       overall.Uptime,
		Dependencies: dependencies,
	})
}
