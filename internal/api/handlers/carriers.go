package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/services"
	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const ServiceName = "Carrier Sales API"

type CarrierHandler struct {
	carrierService *services.CarrierService
	logger         *logrus.Logger
}

func NewCarrierHandler(carrierService *services.CarrierService, logger *logrus.Logger) *CarrierHandler {
	return &CarrierHandler{
		carrierService: carrierService,
		logger:         logger,
	}
}

// HandleValidateCarrier answers 200 for both valid and invalid MC numbers; verified_carrier carries the result.
func (h *CarrierHandler) HandleValidateCarrier(c *gin.Context) {
	startTime := time.Now()

	var query models.ValidateCarrierQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.WithError(err).Warn("Invalid carrier validation request")
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "mc_number query parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	result := h.carrierService.ValidateCarrier(ctx, query.MCNumber)

	h.logger.WithFields(logrus.Fields{
		"mc_number":     query.MCNumber,
		"verified":      result.Verified,
		"response_time": time.Since(startTime).Milliseconds(),
	}).Info("MC validation completed")

	c.JSON(http.StatusOK, models.CarrierResponse{
		StatusCode:      http.StatusOK,
		VerifiedCarrier: result.Verified,
		Message:         result.Message,
	})
}

func (h *CarrierHandler) HandleCarriersHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.ServiceStatusResponse{
		Status:  "healthy",
		Service: ServiceName,
	})
}

// HandleListCarriers is a smoke-test endpoint for API key checks.
func (h *CarrierHandler) HandleListCarriers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello, World!"})
}
