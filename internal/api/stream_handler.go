package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/stream"
)

// StreamHandler upgrades screens to WebSocket and pushes a mirrored list to
// them on every change.
type StreamHandler struct {
	stores   *core.Stores
	sessions SessionManager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStreamHandler creates a new StreamHandler. allowedOrigin is the
// storefront screens' origin.
func NewStreamHandler(stores *core.Stores, sessions SessionManager, allowedOrigin string, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		stores:   stores,
		sessions: sessions,
		upgrader: stream.NewUpgrader(allowedOrigin),
		logger:   logger,
	}
}

// Stream handles GET /api/v1/stream/:collection.
func (h *StreamHandler) Stream(c *gin.Context) {
	collection := c.Param("collection")

	var serve func(conn *websocket.Conn)
	switch collection {
	case "categories":
		serve = func(conn *websocket.Conn) { stream.Serve(conn, h.stores.Categories(), h.logger) }
	case "products":
		serve = func(conn *websocket.Conn) { stream.Serve(conn, h.stores.Products(), h.logger) }
	case "cart", "orders":
		uid, ok := currentUser(c)
		if !ok {
			return
		}
		us, err := h.sessions.Get(uid)
		if err != nil {
			respondError(c, h.logger, "No live "+collection, err)
			return
		}
		if collection == "cart" {
			serve = func(conn *websocket.Conn) { stream.Serve(conn, us.Cart(), h.logger) }
		} else {
			serve = func(conn *websocket.Conn) { stream.Serve(conn, us.Orders(), h.logger) }
		}
	default:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Unknown collection", Details: collection})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.logger.Warn("WebSocket upgrade failed", zap.String("collection", collection), zap.Error(err))
		return
	}
	h.logger.Debug("Stream opened", zap.String("collection", collection), zap.String("uid", c.GetString(middleware.UserIDKey)))
	serve(conn)
}
