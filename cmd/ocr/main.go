package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"vlmax-platform/internal/ai"
	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/models"
	"vlmax-platform/services"
)

// ocr prints the recognized words of an image as JSON on stdout and deletes
// the image afterwards. Logs go to stderr.
func main() {
	out := json.NewEncoder(os.Stdout)

	if len(os.Args) != 2 {
		out.Encode(models.OCRResult{Success: false, OCRData: []models.OCRWord{}, Error: "usage: ocr <image_path>"})
		os.Exit(1)
	}
	path := os.Args[1]

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Remove(path)
		out.Encode(models.OCRResult{Success: false, OCRData: []models.OCRWord{}, Error: err.Error()})
		os.Exit(1)
	}
	logger.InitLoggerTo(cfg, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ModelTimeout)
	defer cancel()

	service := services.NewOCRService(ai.NewOCRClient(cfg, nil), os.Stderr)
	result := service.ProcessImage(ctx, path)

	if err := out.Encode(result); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}
	if !result.Success {
		os.Exit(1)
	}
}
