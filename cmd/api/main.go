package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/walletflow/internal/api/handlers"
	"github.com/dvloznov/walletflow/internal/api/middleware"
	"github.com/dvloznov/walletflow/internal/cache"
	"github.com/dvloznov/walletflow/internal/config"
	"github.com/dvloznov/walletflow/internal/gcsuploader"
	infraBQ "github.com/dvloznov/walletflow/internal/infra/bigquery"
	"github.com/dvloznov/walletflow/internal/jobs/inmemory"
	"github.com/dvloznov/walletflow/internal/logger"
	"github.com/dvloznov/walletflow/internal/renderer"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", os.Getenv("WALLETFLOW_CONFIG"), "Path to a YAML config file (or set WALLETFLOW_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level)
	ctx := logger.WithContext(context.Background(), log)

	// Diagram cache: Redis when configured, otherwise process memory
	var diagramCache cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		diagramCache = redisCache
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis diagram cache")
	} else {
		diagramCache = cache.NewMemory()
		log.Info().Msg("No Redis configured - using in-memory diagram cache")
	}

	service := renderer.NewService(
		renderer.WithCache(diagramCache, cfg.Cache.TTL),
		renderer.WithDefaults(cfg.DiagramOptions()),
	)

	// Job sources
	sources := &renderer.Sources{Storage: gcsuploader.NewGCSStorageService()}
	if cfg.BigQuery.Project != "" {
		recordRepo, err := infraBQ.NewBigQueryRecordRepository(ctx, cfg.BigQuery.Project)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery record repository")
		}
		defer recordRepo.Close()
		sources.Records = recordRepo
	} else {
		log.Warn().Msg("No BigQuery project configured - bq:// job sources will be rejected")
	}
	if cfg.GCS.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - job diagrams are only uploaded when output_uri is set")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	queueCfg := inmemory.DefaultConfig()
	queueCfg.BufferSize = cfg.Jobs.QueueSize
	queueCfg.Workers = cfg.Jobs.Workers
	queueCfg.MaxRetries = cfg.Jobs.MaxRetries
	jobQueue := inmemory.NewQueue(queueCfg, jobStore)

	processor := renderer.NewJobProcessor(service, sources, cfg.GCS.Bucket)

	// Start workers in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", queueCfg.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, processor.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Initialize handlers
	mux := handlers.NewRouter(
		handlers.NewDiagramsHandler(service, cfg.Server.MaxBodyBytes, log),
		handlers.NewJobsHandler(jobStore, jobQueue, sources, log),
		handlers.NewLinksHandler(log),
	)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(log)(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(cfg.Server.APIKey, "/health")(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
