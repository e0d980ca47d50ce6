package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/services"
	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type LoadHandler struct {
	loadService *services.LoadService
	timeout     time.Duration
	logger      *logrus.Logger
}

func NewLoadHandler(loadService *services.LoadService, timeout time.Duration, logger *logrus.Logger) *LoadHandler {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &LoadHandler{
		loadService: loadService,
		timeout:     timeout,
		logger:      logger,
	}
}

func (h *LoadHandler) HandleFindMatchingLoads(c *gin.Context) {
	startTime := time.Now()

	var query models.FindLoadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.WithError(err).Warn("Invalid load search request")
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "equipment_type and origin query parameters are required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.loadService.FindMatchingLoads(ctx, services.LoadSearchCriteria{
		EquipmentType:  query.EquipmentType,
		Origin:         query.Origin,
		Destination:    query.Destination,
		PickupDatetime: query.PickupDatetime,
	})
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"equipment_type": query.EquipmentType,
			"origin":         query.Origin,
		}).Error("Load search failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error during load search")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"equipment_type": query.EquipmentType,
		"origin":         query.Origin,
		"results_count":  len(result.Loads),
		"omitted":        result.OmittedParameters,
		"response_time":  time.Since(startTime).Milliseconds(),
	}).Info("Load search completed")

	c.JSON(http.StatusOK, models.LoadsResponse{
		StatusCode:        http.StatusOK,
		LoadsAvailable:    len(result.Loads) > 0,
		Message:           fmt.Sprintf("Number of available loads: %d", len(result.Loads)),
		Loads:             result.Loads,
		OmittedParameters: result.OmittedParameters,
	})
}
