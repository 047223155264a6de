package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key holding the request's correlation ID
	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 64
)

// CorrelationID tags every request with a correlation ID. A caller-supplied ID is
// reused when it is a plain token; it travels into verification requests and logs, so
// anything else is replaced with a fresh UUID.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if !validCorrelationID(correlationID) {
			correlationID = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// GetCorrelationID returns the request's correlation ID, or "" outside the middleware
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
