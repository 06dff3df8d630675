package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/internal/telemetry"
	"vlmax-platform/models"
	"vlmax-platform/services"
	"vlmax-platform/utils"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pipeline <input.pdf|input.png|input.jpg|input.jpeg>")
		os.Exit(1)
	}
	input := os.Args[1]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	if _, err := os.Stat(input); err != nil {
		logger.Error("Input file not found", "path", input)
		os.Exit(1)
	}
	if !utils.IsPDF(input) && !utils.IsSupportedImage(input) {
		logger.Error("Unsupported file type; use a pdf, png, jpg or jpeg file", "path", input)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer shutdownTracer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, _, closeModels, err := services.NewPipelineFromConfig(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer closeModels()

	run, err := pipeline.Process(ctx, input)
	if err != nil {
		logger.Error("Pipeline failed", "input", input, "error", err)
		if errors.Is(err, models.ErrFileNotFound) || errors.Is(err, models.ErrUnsupportedFormat) {
			os.Exit(1)
		}
		os.Exit(2)
	}

	logger.Info("Done",
		"document", run.Document,
		"pages", run.Pages,
		"tables", run.Tables(),
		"index", cfg.IndexPath,
		"merged", cfg.MergedPath,
	)
}
