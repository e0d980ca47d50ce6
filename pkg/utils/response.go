package utils

import (
	"github.com/gin-gonic/gin"
)

type StatusEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
}

type ErrorBody struct {
	Detail string `json:"detail"`
}

// StatusResponse writes the statusCode/success/message envelope used by write endpoints.
func StatusResponse(c *gin.Context, code int, success bool, message string) {
	c.JSON(code, StatusEnvelope{
		StatusCode: code,
		Success:    success,
		Message:    message,
	})
}

// ErrorResponse writes a client-safe error body. Internal error text belongs in the logs, never here.
func ErrorResponse(c *gin.Context, code int, detail string) {
	c.JSON(code, ErrorBody{Detail: detail})
}

// AbortWithError writes the error body and stops the handler chain.
func AbortWithError(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, ErrorBody{Detail: detail})
}
