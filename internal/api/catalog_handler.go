package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/models"
)

// CatalogHandler handles browsing and curation of categories and products.
type CatalogHandler struct {
	catalog core.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(cs core.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: cs, logger: logger}
}

// ListCategories handles GET /api/v1/categories.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Categories())
}

// ListProducts handles GET /api/v1/products. The filters category,
// recommended and q are exclusive and checked in that order.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "category must be an integer", Details: err.Error()})
			return
		}
		c.JSON(http.StatusOK, h.catalog.ProductsByCategory(id))
		return
	}
	if raw := c.Query("recommended"); raw != "" {
		recommended, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "recommended must be a boolean", Details: err.Error()})
			return
		}
		if recommended {
			c.JSON(http.StatusOK, h.catalog.RecommendedProducts())
			return
		}
	}
	if q, ok := c.GetQuery("q"); ok {
		c.JSON(http.StatusOK, h.catalog.SearchProducts(q))
		return
	}
	c.JSON(http.StatusOK, h.catalog.Products())
}

// GetProduct handles GET /api/v1/products/:key.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.catalog.ProductByKey(c.Param("key"))
	if err != nil {
		respondError(c, h.logger, "Product not found", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	created, err := h.catalog.CreateCategory(c.Request.Context(), req.Category())
	if err != nil {
		respondError(c, h.logger, "Failed to create category", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ReplaceCategory handles PUT /api/v1/admin/categories/:key.
func (h *CatalogHandler) ReplaceCategory(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	updated, err := h.catalog.ReplaceCategory(c.Request.Context(), c.Param("key"), req.Category())
	if err != nil {
		respondError(c, h.logger, "Failed to replace category", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/:key.
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.catalog.DeleteCategory(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, h.logger, "Failed to delete category", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req models.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	created, err := h.catalog.CreateProduct(c.Request.Context(), req.Product())
	if err != nil {
		respondError(c, h.logger, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ReplaceProduct handles PUT /api/v1/admin/products/:key.
func (h *CatalogHandler) ReplaceProduct(c *gin.Context) {
	var req models.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	updated, err := h.catalog.ReplaceProduct(c.Request.Context(), c.Param("key"), req.Product())
	if err != nil {
		respondError(c, h.logger, "Failed to replace product", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProduct handles DELETE /api/v1/admin/products/:key.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, h.logger, "Failed to delete product", err)
		return
	}
	c.Status(http.StatusNoContent)
}
