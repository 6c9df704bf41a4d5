// Package middleware holds the gin middleware chain of the MultiNLU API.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// maxRequestIDLen bounds a client-supplied ID before it reaches the logs.
const maxRequestIDLen = 128

// RequestID reuses the caller's X-Request-ID or assigns a new UUID, echoes it
// on the response and stores a request-scoped logger in the context.
func RequestID(logger logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		l := logger.With(logging.String("request_id", id))
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), l))
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// abortWithError writes the standard error body and stops the chain.
func abortWithError(c *gin.Context, code errors.ErrorCode, message string) {
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), nlu.ErrorResponse{
		Code:    code.String(),
		Message: message,
	})
}

//Personal.AI order the ending
