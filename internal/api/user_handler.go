package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/models"
)

// UserHandler handles user-profile related API endpoints.
type UserHandler struct {
	userService core.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us core.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: us, logger: logger}
}

// GetCurrentUserProfile handles the GET /api/v1/users/me endpoint.
func (h *UserHandler) GetCurrentUserProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.userService.GetByID(uid)
	if err != nil {
		respondError(c, h.logger, "User profile not found", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers handles GET /api/v1/admin/users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.userService.List())
}

// SetRole handles PUT /api/v1/admin/users/:uid/role.
func (h *UserHandler) SetRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	user, err := h.userService.SetRole(c.Request.Context(), c.Param("uid"), req.Role)
	if err != nil {
		respondError(c, h.logger, "Failed to change role", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
