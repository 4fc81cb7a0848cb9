package main

import (
	"context"   // context package is needed for Redis operations
	"errors"    // Server shutdown errors
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // Termination signal
	"time"      // Timeouts

	"campus_identity/internal/api"        // Custom package for API handlers
	"campus_identity/internal/config"     // Custom package for configuration
	"campus_identity/internal/credential" // Password hashing
	"campus_identity/internal/db"         // Database connection
	"campus_identity/internal/jobs"       // Scheduled maintenance
	"campus_identity/internal/middleware" // Custom package for middleware
	"campus_identity/internal/service"    // Business operations
	"campus_identity/internal/store"      // Persistence
	"campus_identity/internal/utils"      // Token service

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	config.SetupLogger(cfg)    // Setup logger
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Connect to the database
	gormDB, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	repo := store.New(gormDB)

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	hasher := credential.NewManager(cfg.BcryptCost, cfg.HashConcurrency)
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	r := api.NewRouter(api.Deps{
		Repo:      repo,
		Registrar: service.NewRegistrar(repo, hasher, tokens),
		Accounts:  service.NewAccounts(repo, hasher, tokens),
		Directory: service.NewDirectory(repo),
		Tokens:    tokens,
		Throttle:  middleware.NewLoginThrottle(redisClient, cfg.LoginMaxFails, cfg.LoginLockout),
		Redis:     redisClient,
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	sweeper := jobs.NewSweeper(repo, cfg.OrphanGrace)
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		logrus.Fatalf("failed to schedule orphan sweep: %v", err)
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
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("server shutdown: %v", err)
	}
	sweeper.Stop()
	_ = redisClient.Close()
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
