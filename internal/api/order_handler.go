package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/models"
)

// OrderHandler handles checkout, order history and fulfilment.
type OrderHandler struct {
	orders core.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc core.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: svc, logger: logger}
}

// ListOrders handles GET /api/v1/orders, newest first.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	orders, err := h.orders.List(uid)
	if err != nil {
		respondError(c, h.logger, "Failed to read orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// Checkout handles POST /api/v1/orders.
func (h *OrderHandler) Checkout(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
			return
		}
	}
	order, err := h.orders.Checkout(c.Request.Context(), uid, req.Shipping)
	if err != nil {
		respondError(c, h.logger, "Failed to place order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// UpdateStatus handles PATCH /api/v1/admin/orders/:uid/:orderId/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("uid"), c.Param("orderId"), req.Status)
	if err != nil {
		respondError(c, h.logger, "Failed to update order status", err)
		return
	}
	c.JSON(http.StatusOK, order)
}
