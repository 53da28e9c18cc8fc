package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/mirror"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/session"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CartResponse is returned by GET /api/v1/cart.
type CartResponse struct {
	Items  []models.CartItem `json:"items"`
	Totals core.CartTotals   `json:"totals"`
}

// LoginResponse is returned by POST /api/v1/session.
type LoginResponse struct {
	User    models.User `json:"user"`
	Created bool        `json:"created"`
}

// statusFor maps service and mirror errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrExceedsStock), errors.Is(err, core.ErrEmptySelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidQuantity), errors.Is(err, core.ErrInvalidRole), errors.Is(err, mirror.ErrMissingKey):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoSession):
		return http.StatusForbidden
	case errors.Is(err, mirror.ErrNoScope), errors.Is(err, mirror.ErrNotSubscribed),
		errors.Is(err, mirror.ErrClosed), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status it maps to. Server-side failures
// are logged; client errors are not.
func respondError(c *gin.Context, logger *zap.Logger, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message,
			zap.String("path", c.FullPath()),
			zap.String("uid", c.GetString(middleware.UserIDKey)),
			zap.Error(err),
		)
	}
	if errors.Is(err, session.ErrNoSession) {
		message = "Sign in first by creating a session"
	}
	c.JSON(status, ErrorResponse{Error: message, Details: err.Error()})
}

// currentUser returns the uid set by the auth middleware, answering 401
// when it is missing.
func currentUser(c *gin.Context) (string, bool) {
	uid := c.GetString(middleware.UserIDKey)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: User ID not found in context"})
		return "", false
	}
	return uid, true
}
