package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/seed"
	"github.com/example/storefront/internal/session"
)

func main() {
	// In production, environment variables should be set directly.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file loaded:", err)
		}
	}

	// --- 1. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	zapLogger, err := logger.New(appConfig.LogFormat)
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	zapLogger.Info("Application configuration loaded successfully.", zap.String("backend", appConfig.RemoteBackend))

	// appCtx bounds every remote subscription.
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// --- 3. Initialize Firebase Admin SDK and the remote client ---
	initCtx, cancelInitCtx := context.WithTimeout(appCtx, 15*time.Second)
	defer cancelInitCtx()

	var fb *db.Firebase
	if appConfig.UsesFirebase() {
		fb, err = db.InitFirebase(initCtx, appConfig, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
		}
	}

	client, err := newRemoteClient(initCtx, appConfig, fb, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to create remote client", zap.Error(err))
	}
	defer func() {
		if err := client.Close(); err != nil {
			zapLogger.Warn("Failed to close remote client", zap.Error(err))
		}
	}()

	// --- 4. Start the shared mirrors and wait for their first snapshot ---
	stores := core.NewStores(client, zapLogger)
	if err := stores.Start(appCtx); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to subscribe shared collections", zap.Error(err))
	}
	defer stores.Close()
	if err := stores.Ready(initCtx); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Shared collections did not load", zap.Error(err))
	}
	zapLogger.Info("Shared collections loaded.",
		zap.Int("categories", len(stores.Categories().Items())),
		zap.Int("products", len(stores.Products().Items())),
		zap.Int("users", len(stores.Users().Items())),
	)

	// --- 5. Initialize Services ---
	publisher := newPublisher(appConfig, zapLogger)
	defer publisher.Close() //nolint:errcheck

	sessions := session.NewRegistry(appCtx, client, zapLogger)
	defer sessions.Close()

	catalogService := core.NewCatalogService(stores)
	userService := core.NewUserService(stores, zapLogger)
	cartService := core.NewCartService(sessions, catalogService)
	orderService := core.NewOrderService(sessions, stores, client, publisher, zapLogger)
	zapLogger.Info("Core services initialized successfully.")

	if appConfig.SeedFile != "" {
		catalog, err := seed.Load(appConfig.SeedFile)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to load seed file", zap.Error(err))
		}
		if _, err := seed.Apply(initCtx, catalogService, catalog, zapLogger); err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to seed catalog", zap.Error(err))
		}
	}

	// --- 6. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	// Order matters: request id, logger, recovery, then CORS.
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.Recover(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	var verifier middleware.TokenVerifier
	if fb != nil {
		verifier = fb.Auth
	} else {
		zapLogger.Warn("No identity provider configured, accepting development tokens (dev:{uid})")
		verifier = middleware.DevVerifier{}
	}

	api.SetupRoutes(router, appConfig, zapLogger, verifier, sessions, stores,
		userService, catalogService, cartService, orderService)

	// --- 7. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 8. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully.")
}

// newRemoteClient creates the Client for the configured backend.
func newRemoteClient(ctx context.Context, appConfig *config.Config, fb *db.Firebase, logger *zap.Logger) (db.Client, error) {
	switch appConfig.RemoteBackend {
	case config.BackendFirestore:
		fs, err := fb.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		return db.NewFirestoreClient(fs, logger)
	case config.BackendRTDB:
		rt, err := fb.Database(ctx)
		if err != nil {
			return nil, err
		}
		return db.NewRealtimeClient(rt, appConfig.RTDBPollInterval, logger)
	case config.BackendRedis:
		return db.NewRedisClient(ctx, db.NewRedisClientConfig{
			Address:  appConfig.RedisAddress,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, logger)
	case config.BackendMemory:
		logger.Warn("Using the in-memory backend; data is lost on exit")
		return db.NewMemoryClient(), nil
	default:
		return nil, fmt.Errorf("unknown remote backend '%s'", appConfig.RemoteBackend)
	}
}

// newPublisher returns a RabbitMQ publisher when RABBITMQ_URL is set and a
// logging publisher otherwise.
func newPublisher(appConfig *config.Config, logger *zap.Logger) events.Publisher {
	if appConfig.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set, order events are only logged")
		return events.NewLogPublisher(logger)
	}
	p, err := events.NewRabbitMQPublisher(events.NewRabbitMQConfig{
		URL:   appConfig.RabbitMQURL,
		Queue: appConfig.OrderEventsQueue,
	}, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, order events are only logged", zap.Error(err))
		return events.NewLogPublisher(logger)
	}
	return p
}
