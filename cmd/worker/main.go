package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealutkarshpriyadarshi/timeline/internal/cache"
	"github.com/therealutkarshpriyadarshi/timeline/internal/config"
	"github.com/therealutkarshpriyadarshi/timeline/internal/database"
	"github.com/therealutkarshpriyadarshi/timeline/internal/export"
	"github.com/therealutkarshpriyadarshi/timeline/internal/logging"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/internal/monitoring"
	"github.com/therealutkarshpriyadarshi/timeline/internal/project"
	"github.com/therealutkarshpriyadarshi/timeline/internal/queue"
	"github.com/therealutkarshpriyadarshi/timeline/internal/storage"
	"github.com/therealutkarshpriyadarshi/timeline/internal/tracing"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
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

	cfg.Tracing.ServiceName += "-worker"
	_, tracerCloser, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer tracerCloser.Close()

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

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

	processor := export.NewProcessor(repo, redisCache, export.NewRenderClient(cfg.Render), stor, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	monitor := monitoring.NewMonitor(repo, q, time.Hour, monitoring.DefaultThresholds(), logger)
	go monitor.Run(ctx, 30*time.Second)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, monitor.Err)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	jobHandler := func(ctx context.Context, job *models.ExportJob) error {
		jobLogger := logger.WithJobID(job.ID).WithProjectID(job.ProjectID)
		jobLogger.Infof("Processing export (attempt %d)", job.RetryCount+1)

		if err := processor.Process(ctx, job); err != nil {
			jobLogger.ErrorWithErr("Export failed, scheduling retry", err)
			return err
		}
		return nil
	}

	// Exports that used up their retries stay failed; the dead letter consumer
	// records the final reason on the job so clients stop polling.
	dlqHandler := func(job *models.ExportJob, reason string) error {
		logger.WithJobID(job.ID).Warnf("Export abandoned: %s", reason)
		failCtx, failCancel := context.WithTimeout(ctx, 10*time.Second)
		defer failCancel()
		return repo.FailExportJob(failCtx, job.ID, reason, job.RetryCount)
	}

	logger.Info("Worker started, waiting for exports...")
	if err := q.ConsumeExports(ctx, jobHandler); err != nil {
		logger.Fatalf("Failed to consume exports: %v", err)
	}
	if err := q.ConsumeDLQ(ctx, dlqHandler); err != nil {
		logger.Fatalf("Failed to consume dead letter queue: %v", err)
	}

	// Wait for shutdown
	<-ctx.Done()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	logger.Info("Worker stopped")
}
