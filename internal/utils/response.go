package utils

import (
	"campus_identity/internal/apperr" // Error kinds

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// Envelope is the body of every JSON response
type Envelope struct {
	Success bool   `json:"success"`           // Outcome
	Data    any    `json:"data,omitempty"`    // Payload on success
	Message string `json:"message,omitempty"` // Reason on failure
}

// RespondOK writes a success envelope
func RespondOK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// RespondFail aborts the chain with a failure envelope
func RespondFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message})
}

// RespondError maps err to its status and a caller-safe message; unexpected errors are logged with detail and reported generically
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindUnexpected {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(RequestIDKey),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"error":      err,
		}).Error("request failed")
	}
	RespondFail(c, kind.Status(), apperr.PublicMessage(err))
}
