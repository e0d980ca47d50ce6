package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/services"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/worker"
	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type MetricsHandler struct {
	metricsService *services.MetricsService
	refresher      *worker.RefreshWorker
	logger         *logrus.Logger
}

func NewMetricsHandler(metricsService *services.MetricsService, refresher *worker.RefreshWorker, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		metricsService: metricsService,
		refresher:      refresher,
		logger:         logger,
	}
}

func (h *MetricsHandler) HandleStoreMetrics(c *gin.Context) {
	var req models.StoreMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid metrics payload")
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "Invalid metrics payload")
		return
	}

	// run-status lookup has its own 5s budget inside the service
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	metric, err := h.metricsService.StoreMetrics(ctx, req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to store metrics")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.WithField("metric_id", metric.ID).Debug("Store metrics request handled")
	utils.StatusResponse(c, http.StatusOK, true, "Metrics stored successfully")
}

// HandleUpdateMetrics queues a refresh and returns immediately.
func (h *MetricsHandler) HandleUpdateMetrics(c *gin.Context) {
	if !h.refresher.Trigger() {
		utils.StatusResponse(c, http.StatusOK, true, "Metrics refresh already in progress")
		return
	}
	utils.StatusResponse(c, http.StatusOK, true, "Metrics refresh started")
}

func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	limit := services.DefaultMetricsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	metrics, err := h.metricsService.ListMetrics(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list metrics")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, models.MetricsListResponse{
		StatusCode: http.StatusOK,
		Metrics:    metrics,
	})
}

func (h *MetricsHandler) HandleMetricsHealth(c *gin.Context) {
	var lastRefresh interface{}
	if report := h.refresher.LastRun(); report != nil {
		lastRefresh = report
	}
	c.JSON(http.StatusOK, models.MetricsHealthResponse{
		Status:      "healthy",
		Service:     ServiceName,
		LastRefresh: lastRefresh,
	})
}
