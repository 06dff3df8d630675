package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/internal/queue"
	"vlmax-platform/internal/telemetry"
	"vlmax-platform/middleware"
	"vlmax-platform/routes"
	"vlmax-platform/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg)
	if err != nil {
		log.Fatal("Failed to initialize tracer:", err)
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	ctx := context.Background()
	pipeline, gemini, closeModels, err := services.NewPipelineFromConfig(ctx, cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize pipeline:", err)
	}
	defer closeModels()

	store := pipeline.Store()
	if err := store.EnsureDirs(); err != nil {
		log.Fatal("Failed to create artifact directories:", err)
	}

	// Redis is optional unless sessions or the queue need it
	var rdb *redis.Client
	if cfg.SessionStore == "redis" || cfg.QueueEnabled {
		rdb, err = config.NewRedisClient(cfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer rdb.Close()
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	if mongoClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			mongoClient.Disconnect(ctx)
		}()
	}

	cron := services.NewCronService()
	var sessions services.SessionStore
	memorySessions := services.NewMemorySessionStore()
	if cfg.SessionStore == "redis" {
		sessions = services.NewRedisSessionStore(rdb, cfg.SessionTTL)
	} else {
		sessions = memorySessions
	}

	transcripts := services.NewTranscriptRecorder(mongoClient, cfg.DBName)
	chat := services.NewChatService(gemini, sessions, transcripts, cfg.MaxHistoryTurns)
	cleaner := services.NewCleaner(cfg)

	if cfg.SessionStore == "memory" {
		if err := cron.ScheduleSessionEviction(memorySessions, chat, cfg.SessionTTL); err != nil {
			log.Fatal("Failed to schedule session eviction:", err)
		}
	}
	if cfg.CleanupCron != "" {
		if err := cron.ScheduleCleanup(cfg.CleanupCron, cleaner); err != nil {
			log.Fatal("Failed to schedule cleanup:", err)
		}
	}
	cron.Start()
	defer cron.Stop()

	var enqueuer routes.DocumentEnqueuer
	if cfg.QueueEnabled {
		q := queue.NewEnqueuer(config.AsynqRedisOpt(cfg))
		defer q.Close()
		enqueuer = q
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware(cfg.ServiceName))
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize))

	routes.SetupStaticRoutes(router, cfg)
	routes.SetupAskRoutes(router, chat, services.NewExportService(chat, transcripts), store, cfg.ModelTimeout)
	routes.SetupDocumentRoutes(router, cfg, pipeline, enqueuer, store, cleaner)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "session_store", cfg.SessionStore, "queue", cfg.QueueEnabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
