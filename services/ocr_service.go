package services

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"vlmax-platform/internal/ai"
	"vlmax-platform/internal/logger"
	"vlmax-platform/models"
	"vlmax-platform/utils"
)

// OCRService runs word-level OCR on a temporary image and always removes the
// image afterwards.
type OCRService struct {
	engine ai.OCREngine
	errOut io.Writer
}

func NewOCRService(engine ai.OCREngine, errOut io.Writer) *OCRService {
	if errOut == nil {
		errOut = os.Stderr
	}
	return &OCRService{engine: engine, errOut: errOut}
}

// ProcessImage never returns an error; failures are reported through
// OCRResult.Success and OCRResult.Error. The input file is deleted on every
// path, including a panic inside the engine.
func (s *OCRService) ProcessImage(ctx context.Context, path string) (result models.OCRResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.OCRResult{Success: false, OCRData: []models.OCRWord{}, Error: fmt.Sprintf("%v", r)}
		}
		s.removeInput(path)
	}()

	if !utils.IsSupportedImage(path) {
		return failure(fmt.Errorf("%s: %w", path, models.ErrUnsupportedFormat))
	}

	dims, err := imageDimensions(path)
	if err != nil {
		return failure(err)
	}

	words, err := s.engine.Recognize(ctx, path)
	if err != nil {
		return failure(err)
	}

	kept := make([]models.OCRWord, 0, len(words))
	for _, w := range words {
		// Whitespace only decides blankness; the word is reported as recognised.
		if strings.TrimSpace(w.Word) == "" || w.Confidence <= 0 {
			continue
		}
		kept = append(kept, w)
	}

	return models.OCRResult{
		Success:         true,
		OCRData:         kept,
		WordCount:       len(kept),
		ImageDimensions: dims,
	}
}

func failure(err error) models.OCRResult {
	return models.OCRResult{Success: false, OCRData: []models.OCRWord{}, Error: err.Error()}
}

func imageDimensions(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	return []int{cfg.Width, cfg.Height}, nil
}

func (s *OCRService) removeInput(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to delete OCR input", "path", path, "error", err)
		json.NewEncoder(s.errOut).Encode(map[string]any{
			"success": false,
			"error":   fmt.Sprintf("failed to delete temp file: %v", err),
		})
	}
}
