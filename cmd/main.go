package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"product-sync-service/internal/clients"
	"product-sync-service/internal/config"
	"product-sync-service/internal/events"
	"product-sync-service/internal/handlers"
	"product-sync-service/internal/middleware"
	"product-sync-service/internal/repository"
	"product-sync-service/internal/sync"
)

// @title Product Sync API
// @version 1.0.0
// @description Catalog sync service: ingests supplier CSV/XLSX files and reconciles them against the product store

// @contact.name Product Sync API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8094
// @BasePath /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Api-Key

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db, redisClient)
	settingsRepo := repository.NewSettingsRepository(db)

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if os.Getenv("NATS_URL") != "" {
		eventsPublisher, err = events.NewPublisher(logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// Initialize sync engine
	index := sync.NewExternalIDIndex(catalogRepo.ExternalIDEntries, cfg.IndexCacheTTL)
	attacher := sync.NewAttacher(catalogRepo, logger)
	engine := sync.NewEngine(catalogRepo, index, attacher, logger, sync.Options{
		MaxErrors: cfg.MaxSyncErrors,
		RowLimit:  cfg.SyncRowLimit,
		Timeout:   cfg.SyncTimeout,
	})

	// Initialize clients
	storesClient := clients.NewStoresClient(cfg.StoresEndpoint, redisClient, cfg.StoresCacheTTL, logger)

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(engine, eventsPublisher, logger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, storesClient, index, logger)
	attachmentsHandler := handlers.NewAttachmentsHandler(catalogRepo, logger)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck(db))

	if cfg.AuthDisabled {
		log.Println("WARNING: API authentication is disabled")
	}
	auth := middleware.APITokenAuth(cfg.APIToken, cfg.AuthDisabled, logger)

	// Catalog sync endpoints; the GET probe stays open
	router.GET("/product-sync/v1/products", syncHandler.Ping)
	router.POST("/product-sync/v1/products", auth, syncHandler.Upload)

	// Settings and administration endpoints
	api := router.Group("/api/v1")
	api.Use(auth)
	{
		stores := api.Group("/stores")
		{
			stores.GET("", settingsHandler.ListStores)
			stores.GET("/:storeId/categories", settingsHandler.ListStoreCategories)
			stores.POST("/cache/refresh", settingsHandler.RefreshStoresCache)
		}

		settings := api.Group("/settings")
		{
			settings.GET("/mappings/:storeId", settingsHandler.GetStoreMapping)
			settings.PUT("/mappings/:storeId", settingsHandler.UpdateStoreMapping)
			settings.GET("/stores", settingsHandler.ListStoreSettings)
			settings.PUT("/stores", settingsHandler.SetEnabledStores)
		}

		api.POST("/sync/index/refresh", settingsHandler.RefreshIndex)
		api.GET("/attachments/:id/image", attachmentsHandler.RedirectImage)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Product sync service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Product sync service stopped")
}
