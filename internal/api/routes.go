package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (request id, logging, recovery, CORS) is applied to router
// in main.go before this is called.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	verifier middleware.TokenVerifier,
	sessions SessionManager,
	stores *core.Stores,
	userService core.UserService,
	catalogService core.CatalogService,
	cartService core.CartService,
	orderService core.OrderService,
) {
	authMW := middleware.NewAuthMiddleware(verifier, logger)
	requireAdmin := middleware.RequireAdmin(userService.IsAdmin)

	sessionHandler := NewSessionHandler(sessions, userService, logger)
	userHandler := NewUserHandler(userService, logger)
	catalogHandler := NewCatalogHandler(catalogService, logger)
	cartHandler := NewCartHandler(cartService, logger)
	orderHandler := NewOrderHandler(orderService, logger)
	streamHandler := NewStreamHandler(stores, sessions, appConfig.ClientURL, logger)

	apiV1 := router.Group("/api/v1", authMW.VerifyToken())
	{
		apiV1.POST("/session", sessionHandler.Login)
		apiV1.DELETE("/session", sessionHandler.Logout)

		apiV1.GET("/users/me", userHandler.GetCurrentUserProfile)

		apiV1.GET("/categories", catalogHandler.ListCategories)
		apiV1.GET("/products", catalogHandler.ListProducts)
		apiV1.GET("/products/:key", catalogHandler.GetProduct)

		cartGroup := apiV1.Group("/cart")
		{
			cartGroup.GET("", cartHandler.GetCart)
			cartGroup.POST("/items", cartHandler.AddItem)
			cartGroup.PATCH("/items/:key", cartHandler.UpdateItem)
			cartGroup.DELETE("/items/:key", cartHandler.RemoveItem)
		}

		apiV1.GET("/orders", orderHandler.ListOrders)
		apiV1.POST("/orders", orderHandler.Checkout)

		apiV1.GET("/stream/:collection", streamHandler.Stream)

		adminGroup := apiV1.Group("/admin", requireAdmin)
		{
			adminGroup.GET("/users", userHandler.ListUsers)
			adminGroup.PUT("/users/:uid/role", userHandler.SetRole)

			adminGroup.POST("/categories", catalogHandler.CreateCategory)
			adminGroup.PUT("/categories/:key", catalogHandler.ReplaceCategory)
			adminGroup.DELETE("/categories/:key", catalogHandler.DeleteCategory)

			adminGroup.POST("/products", catalogHandler.CreateProduct)
			adminGroup.PUT("/products/:key", catalogHandler.ReplaceProduct)
			adminGroup.DELETE("/products/:key", catalogHandler.DeleteProduct)

			adminGroup.PATCH("/orders/:uid/:orderId/status", orderHandler.UpdateStatus)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Storefront backend is healthy."})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("API routes configured successfully under /api/v1, /health and /metrics.")
}
