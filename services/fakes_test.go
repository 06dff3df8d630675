package services

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"vlmax-platform/internal/config"
	"vlmax-platform/models"

	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	detections []models.Detection
	err        error
	calls      int
}

func (f *fakeDetector) Detect(_ context.Context, _ image.Image, _ float64) ([]models.Detection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Detection(nil), f.detections...), nil
}

type fakeGenerator struct {
	html  string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateMarkup(_ context.Context, png []byte, _ int) (string, error) {
	f.calls++
	if len(png) == 0 {
		panic("empty png")
	}
	return f.html, f.err
}

type fakeCompleter struct {
	mu      sync.Mutex
	answer  string
	err     error
	lastReq []models.Turn
}

func (f *fakeCompleter) Complete(_ context.Context, turns []models.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = append([]models.Turn(nil), turns...)
	return f.answer, f.err
}

type fakeOCR struct {
	words []models.OCRWord
	err   error
	panic bool
}

func (f *fakeOCR) Recognize(_ context.Context, _ string) ([]models.OCRWord, error) {
	if f.panic {
		panic("engine crashed")
	}
	return f.words, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	public := t.TempDir()
	return &config.Config{
		PublicDir:       public,
		UploadsDir:      filepath.Join(public, "uploads"),
		PreprocessDir:   filepath.Join(public, "preprocess_results"),
		ResultsDir:      filepath.Join(public, "results"),
		IndexPath:       filepath.Join(public, "results.json"),
		MergedPath:      filepath.Join(public, "results.html"),
		MaxHistoryTurns: 20,
	}
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, testImage(w, h)))
}

const sampleTableHTML = `<table><tr><th>Name</th><th>Qty</th></tr><tr><td> apple </td><td>3</td></tr></table>`
