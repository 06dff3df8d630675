package main

import (
	"context"
	"log"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/internal/queue"
	"vlmax-platform/internal/telemetry"
	"vlmax-platform/services"

	"github.com/hibiken/asynq"
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

	pipeline, _, closeModels, err := services.NewPipelineFromConfig(context.Background(), cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize pipeline:", err)
	}
	defer closeModels()

	redisOpt := config.AsynqRedisOpt(cfg)

	// The index and merged html are shared files, so documents are
	// processed one at a time unless configured otherwise.
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.QueueConcurrency,
			Queues: map[string]int{
				queue.QueueDocuments: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(pipeline)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessDocument, processor.ProcessDocument)

	logger.Info("Starting document worker", "concurrency", cfg.QueueConcurrency, "redis", redisOpt.Addr)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
