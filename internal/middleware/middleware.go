package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	APIKeyHeader    = "x-api-key"
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	missingKeyDetail = "API key is required. Please provide it in the 'x-api-key' header."
	invalidKeyDetail = "Invalid API key"
)

// APIKeyAuth rejects requests whose x-api-key header does not match apiKey.
func APIKeyAuth(apiKey string, logger *logrus.Logger) gin.HandlerFunc {
	expected := []byte(apiKey)
	return func(c *gin.Context) {
		provided := c.GetHeader(APIKeyHeader)
		if provided == "" {
			logger.WithFields(logrus.Fields{
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(requestIDKey),
			}).Warn("Request without API key")
			utils.AbortWithError(c, http.StatusUnauthorized, missingKeyDetail)
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			logger.WithFields(logrus.Fields{
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(requestIDKey),
				"key_prefix": utils.MaskSecret(provided),
			}).Warn("Request with invalid API key")
			utils.AbortWithError(c, http.StatusUnauthorized, invalidKeyDetail)
			return
		}

		c.Next()
	}
}

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// RequestID reuses the caller's X-Request-ID or mints a uuid.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Header(RequestIDHeader, requestID)
		c.Set(requestIDKey, requestID)
		c.Next()
	}
}

// RequestLogger logs one line per request after the handler chain finishes.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(requestIDKey),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request completed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}
