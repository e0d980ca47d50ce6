package api

import (
	"github.com/Ayash-Bera/carrier-sales/backend/internal/api/handlers"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterDeps carries everything the HTTP layer needs. RateLimiter is optional.
type RouterDeps struct {
	APIKey      string
	Carriers    *handlers.CarrierHandler
	Loads       *handlers.LoadHandler
	Metrics     *handlers.MetricsHandler
	Health      *handlers.HealthHandler
	RateLimiter *middleware.RateLimiter
	Logger      *logrus.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(deps.Logger))
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.RateLimit())
	}

	router.GET("/health", deps.Health.HandleHealth)

	auth := middleware.APIKeyAuth(deps.APIKey, deps.Logger)

	carriers := router.Group("/carriers")
	carriers.GET("/health", deps.Carriers.HandleCarriersHealth)
	{
		protected := carriers.Group("", auth)
		protected.GET("/validate_carrier", deps.Carriers.HandleValidateCarrier)
		protected.GET("/carriers", deps.Carriers.HandleListCarriers)
	}

	loads := router.Group("/loads", auth)
	loads.GET("/find_matching_loads", deps.Loads.HandleFindMatchingLoads)

	metrics := router.Group("/metrics")
	metrics.GET("/health", deps.Metrics.HandleMetricsHealth)
	{
		protected := metrics.Group("", auth)
		protected.POST("/store_metrics", deps.Metrics.HandleStoreMetrics)
		protected.POST("/update_metrics", deps.Metrics.HandleUpdateMetrics)
		protected.GET("/get_metrics", deps.Metrics.HandleGetMetrics)
	}

	return router
}
