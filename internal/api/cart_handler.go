package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/models"
)

// CartHandler handles the signed-in user's cart.
type CartHandler struct {
	cart   core.CartService
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cs core.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{cart: cs, logger: logger}
}

// GetCart handles GET /api/v1/cart.
func (h *CartHandler) GetCart(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.cart.Items(uid)
	if err != nil {
		respondError(c, h.logger, "Failed to read cart", err)
		return
	}
	c.JSON(http.StatusOK, CartResponse{Items: items, Totals: totalsOf(h.cart, uid)})
}

func totalsOf(cs core.CartService, uid string) core.CartTotals {
	t, _ := cs.Totals(uid)
	return t
}

// AddItem handles POST /api/v1/cart/items.
func (h *CartHandler) AddItem(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	item, err := h.cart.AddProduct(c.Request.Context(), uid, req)
	if err != nil {
		respondError(c, h.logger, "Failed to add product to cart", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateItem handles PATCH /api/v1/cart/items/:key. A quantity of 0
// removes the line.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if req.Quantity == nil && req.Selected == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Nothing to update", Details: "provide quantity or selected"})
		return
	}

	key := c.Param("key")
	var (
		item models.CartItem
		err  error
	)
	if req.Quantity != nil {
		item, err = h.cart.SetQuantity(c.Request.Context(), uid, key, *req.Quantity)
		if err != nil {
			respondError(c, h.logger, "Failed to change quantity", err)
			return
		}
		if *req.Quantity == 0 {
			c.Status(http.StatusNoContent)
			return
		}
	}
	if req.Selected != nil {
		item, err = h.cart.SetSelected(c.Request.Context(), uid, key, *req.Selected)
		if err != nil {
			respondError(c, h.logger, "Failed to change selection", err)
			return
		}
	}
	c.JSON(http.StatusOK, item)
}

// RemoveItem handles DELETE /api/v1/cart/items/:key.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.cart.RemoveItem(c.Request.Context(), uid, c.Param("key")); err != nil {
		respondError(c, h.logger, "Failed to remove cart line", err)
		return
	}
	c.Status(http.StatusNoContent)
}
