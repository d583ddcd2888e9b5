package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealutkarshpriyadarshi/timeline/internal/cache"
	"github.com/therealutkarshpriyadarshi/timeline/internal/config"
	"github.com/therealutkarshpriyadarshi/timeline/internal/database"
	"github.com/therealutkarshpriyadarshi/timeline/internal/editor"
	"github.com/therealutkarshpriyadarshi/timeline/internal/export"
	"github.com/therealutkarshpriyadarshi/timeline/internal/logging"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/internal/middleware"
	"github.com/therealutkarshpriyadarshi/timeline/internal/project"
	"github.com/therealutkarshpriyadarshi/timeline/internal/queue"
	"github.com/therealutkarshpriyadarshi/timeline/internal/storage"
	"github.com/therealutkarshpriyadarshi/timeline/internal/tracing"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	_, tracerCloser, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer tracerCloser.Close()

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	repo := project.NewRepository(db)

	// Initialize redis
	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisCache.Close()

	// Initialize storage
	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := editor.NewRegistry(repo, repo, redisCache, redisCache, editor.OptionsFromConfig(cfg.Editor), logger)
	sweepDone := make(chan struct{})
	go func() {
		registry.Run(ctx, time.Minute)
		close(sweepDone)
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go limiter.Cleanup(ctx, time.Minute, 10*time.Minute)

	api := &API{
		projects: repo,
		sessions: registry,
		exports:  export.NewService(repo, q, redisCache),
		media:    stor,
		checks: map[string]func(context.Context) error{
			"database": db.Health,
			"redis":    redisCache.Ping,
		},
		logger: logger,
	}

	router := setupRouter(api, routerOptions{
		limiter:      limiter,
		quota:        redisCache,
		exportLimit:  cfg.RateLimit.ExportsPerWindow,
		exportWindow: cfg.RateLimit.ExportWindow,
	})

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, nil)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}

	// stopping the sweeper closes every session, flushing unsaved edits
	cancel()
	<-sweepDone

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	logger.Info("Server stopped")
}
