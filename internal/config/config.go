package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"product-sync-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Auth. The sync endpoint requires a token by default; AUTH_DISABLED
	// restores the historical open-endpoint behavior for compatibility tests.
	APIToken     string
	AuthDisabled bool

	// Remote store catalog
	StoresEndpoint string
	StoresCacheTTL time.Duration

	// Sync engine
	IndexCacheTTL time.Duration
	MaxSyncErrors int
	SyncRowLimit  int
	SyncTimeout   time.Duration
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	storesCacheTTL, _ := strconv.Atoi(getEnv("STORES_CACHE_TTL_SECONDS", "600"))
	indexCacheTTL, _ := strconv.Atoi(getEnv("INDEX_CACHE_TTL_SECONDS", "600"))
	maxSyncErrors, _ := strconv.Atoi(getEnv("MAX_SYNC_ERRORS", "200"))
	syncRowLimit, _ := strconv.Atoi(getEnv("SYNC_ROW_LIMIT", "0"))
	syncTimeout, _ := strconv.Atoi(getEnv("SYNC_TIMEOUT_SECONDS", "0"))
	authDisabled, _ := strconv.ParseBool(getEnv("AUTH_DISABLED", "false"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "product_sync_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("PORT", "8094"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Auth
		APIToken:     getEnv("API_TOKEN", ""),
		AuthDisabled: authDisabled,

		// Remote store catalog
		StoresEndpoint: getEnv("STORES_ENDPOINT", "https://api.kodyt.com/api/stores"),
		StoresCacheTTL: time.Duration(storesCacheTTL) * time.Second,

		// Sync engine
		IndexCacheTTL: time.Duration(indexCacheTTL) * time.Second,
		MaxSyncErrors: maxSyncErrors,
		SyncRowLimit:  syncRowLimit,
		SyncTimeout:   time.Duration(syncTimeout) * time.Second,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate models to keep schema up to date
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ProductVariation{},
		&models.Attachment{},
		&models.StoreSetting{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
