package main

import (
	"context"   // Context for startup checks and shutdown
	"errors"    // Error matching
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"recipe_api/internal/api"     // HTTP handlers and router
	"recipe_api/internal/cache"   // Response cache
	"recipe_api/internal/config"  // Configuration
	"recipe_api/internal/db"      // Database connection
	"recipe_api/internal/logging" // Logger setup
	"recipe_api/internal/storage" // Image storage

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Setup logger
	if err := logging.Setup(cfg.LogLevel, cfg.IsProd); err != nil {
		logrus.Fatalf("failed to configure logging: %v", err)
	}

	// Connect to the database
	database, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	responseCache, err := newCache(ctx, cfg)
	if err != nil {
		cancel()
		logrus.Fatalf("failed to set up cache: %v", err)
	}
	images, err := newImageStore(ctx, cfg)
	cancel()
	if err != nil {
		logrus.Fatalf("failed to set up image storage: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{Config: cfg, DB: database, Cache: responseCache, Images: images})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for an interrupt, then drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("forced shutdown: %v", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logrus.Info("Server stopped")
}

// newCache uses Redis when an address is configured and an in-process LRU otherwise
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		logrus.WithField("size", cfg.CacheSize).Info("Using in-process cache")
		return cache.NewLRUCache(cfg.CacheSize)
	}
	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	// Test Redis connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	logrus.WithField("addr", cfg.RedisAddr).Info("Using Redis cache")
	return cache.NewRedisCache(redisClient), nil
}

// newImageStore uses S3 when a bucket is configured and the local media directory otherwise
func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	if cfg.S3Bucket == "" {
		logrus.WithField("root", cfg.MediaRoot).Info("Storing images on local disk")
		return storage.NewDiskStore(cfg.MediaRoot, cfg.MediaURL)
	}
	logrus.WithField("bucket", cfg.S3Bucket).Info("Storing images in S3")
	return storage.NewS3Store(ctx, storage.S3Options{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
	})
}
