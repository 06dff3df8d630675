package ai

import (
	"context"
	"image"

	"vlmax-platform/models"
)

// ChatCompleter answers a conversation. The first turn may carry the
// system role.
type ChatCompleter interface {
	Complete(ctx context.Context, turns []models.Turn) (string, error)
}

// MarkupGenerator turns a PNG-encoded table image into HTML.
type MarkupGenerator interface {
	GenerateMarkup(ctx context.Context, png []byte, maxNewTokens int) (string, error)
}

// Detector finds labelled boxes in an image. Detections scoring below
// threshold are not returned.
type Detector interface {
	Detect(ctx context.Context, img image.Image, threshold float64) ([]models.Detection, error)
}

// OCREngine recognises words in an image file. Words are returned as the
// engine reports them, blanks and negative confidences included.
type OCREngine interface {
	Recognize(ctx context.Context, path string) ([]models.OCRWord, error)
}
