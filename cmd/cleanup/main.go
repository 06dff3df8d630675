package main

import (
	"log"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	report, err := services.NewCleaner(cfg).Run()
	if err != nil {
		log.Fatalf("Cleanup finished with errors: %v", err)
	}
	logger.Info("Cleanup complete", "files_removed", len(report.FilesRemoved))
}
