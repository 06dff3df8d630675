package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"vlmax-platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessImageFiltersWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	writeTestPNG(t, path, 120, 40)

	engine := &fakeOCR{words: []models.OCRWord{
		{Word: "Total", Confidence: 96, BBox: [4]int{1, 2, 30, 12}},
		{Word: "  ", Confidence: 90},
		{Word: "noise", Confidence: -1},
		{Word: "zero", Confidence: 0},
		{Word: " 42 ", Confidence: 88, BBox: [4]int{40, 2, 60, 12}},
	}}
	result := NewOCRService(engine, &bytes.Buffer{}).ProcessImage(context.Background(), path)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.WordCount)
	assert.Equal(t, "Total", result.OCRData[0].Word)
	assert.Equal(t, " 42 ", result.OCRData[1].Word)
	assert.Equal(t, []int{120, 40}, result.ImageDimensions)
	assert.NoFileExists(t, path)
}

func TestProcessImageUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.gif")
	require.NoError(t, os.WriteFile(path, []byte("GIF89a"), 0o644))

	result := NewOCRService(&fakeOCR{}, &bytes.Buffer{}).ProcessImage(context.Background(), path)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.NotNil(t, result.OCRData)
	assert.NoFileExists(t, path)
}

func TestProcessImageDeletesInputOnEngineFailure(t *testing.T) {
	for name, engine := range map[string]*fakeOCR{
		"error": {err: models.ErrModelError},
		"panic": {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scan.jpg.png")
			writeTestPNG(t, path, 10, 10)

			result := NewOCRService(engine, &bytes.Buffer{}).ProcessImage(context.Background(), path)

			assert.False(t, result.Success)
			assert.NoFileExists(t, path)
		})
	}
}
