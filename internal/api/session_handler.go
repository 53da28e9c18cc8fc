package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/session"
)

// readyTimeout bounds how long login waits for the first cart and order
// snapshots.
const readyTimeout = 10 * time.Second

// SessionManager hands out the user-scoped mirrors of signed-in users.
// *session.Registry implements it.
type SessionManager interface {
	Acquire(uid string) (*core.UserStores, error)
	Get(uid string) (*core.UserStores, error)
	Release(uid string) error
}

// SessionHandler handles sign-in and sign-out of storefront screens.
type SessionHandler struct {
	sessions    SessionManager
	userService core.UserService
	logger      *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionManager, us core.UserService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, userService: us, logger: logger}
}

// Login handles POST /api/v1/session. It binds the caller's cart and order
// mirrors and makes sure a profile exists.
func (h *SessionHandler) Login(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	stores, err := h.sessions.Acquire(uid)
	if err != nil {
		respondError(c, h.logger, "Failed to open session", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	if err := stores.Ready(ctx); err != nil {
		h.release(uid)
		respondError(c, h.logger, "Cart and orders are not available", err)
		return
	}

	user, created, err := h.userService.EnsureProfile(c.Request.Context(), uid,
		c.GetString(middleware.UserEmailKey), c.GetString(middleware.UserDisplayNameKey))
	if err != nil {
		h.release(uid)
		respondError(c, h.logger, "Failed to initialize user profile", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, LoginResponse{User: user, Created: created})
}

// Logout handles DELETE /api/v1/session. Releasing a session that does not
// exist is not an error.
func (h *SessionHandler) Logout(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.sessions.Release(uid); err != nil && !errors.Is(err, session.ErrNoSession) {
		respondError(c, h.logger, "Failed to close session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) release(uid string) {
	if err := h.sessions.Release(uid); err != nil {
		h.logger.Warn("Failed to release session after failed login", zap.String("uid", uid), zap.Error(err))
	}
}
