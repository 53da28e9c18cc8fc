package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/metrics"
)

// ErrHandlerPanic marks the context error Recover records for a panic.
var ErrHandlerPanic = errors.New("handler panic")

// Recover turns a handler panic into a 500 answer carrying the request id.
// The panic is attached to the context errors so RequestLogger reports it
// on the access line as well.
func Recover(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		panic("Recover requires a non-nil zap.Logger instance")
	}
	return func(c *gin.Context) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			// net/http drops the connection quietly for this one.
			if v == http.ErrAbortHandler {
				panic(v)
			}
			var err error
			if cause, ok := v.(error); ok {
				err = fmt.Errorf("%w: %w", ErrHandlerPanic, cause)
			} else {
				err = fmt.Errorf("%w: %v", ErrHandlerPanic, v)
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			requestID := c.GetString(RequestIDKey)
			metrics.HandlerPanics.WithLabelValues(route).Inc()
			_ = c.Error(err)

			logger.Error("Handler panicked",
				zap.Error(err),
				zap.String("route", route),
				zap.String("request_id", requestID),
				zap.Stack("stack"),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal error",
				Details: "request " + requestID + " could not be completed",
			})
		}()
		c.Next()
	}
}
