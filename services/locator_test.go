package services

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"vlmax-platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampBoxExpandsAsymmetrically(t *testing.T) {
	region, ok := ClampBox([4]float64{100, 100, 200, 200}, 10, 1000, 1000)
	require.True(t, ok)
	assert.Equal(t, image.Rect(75, 90, 225, 210), region)
}

func TestClampBoxStaysInsideImage(t *testing.T) {
	boxes := [][4]float64{
		{0, 0, 10, 10},
		{-50, -50, 2000, 2000},
		{990, 990, 1000, 1000},
		{500.7, 20.2, 500.9, 20.4},
		{300, 300, 100, 100},
	}
	sizes := [][2]int{{1000, 1000}, {640, 480}, {30, 30}, {1, 1}}

	for _, box := range boxes {
		for _, size := range sizes {
			for _, margin := range []int{0, 10, 50} {
				region, ok := ClampBox(box, margin, size[0], size[1])
				if !ok {
					continue
				}
				assert.GreaterOrEqual(t, region.Min.X, 0)
				assert.GreaterOrEqual(t, region.Min.Y, 0)
				assert.LessOrEqual(t, region.Max.X, size[0])
				assert.LessOrEqual(t, region.Max.Y, size[1])
				assert.Less(t, region.Min.X, region.Max.X)
				assert.Less(t, region.Min.Y, region.Max.Y)
			}
		}
	}
}

func TestClampBoxRejectsBoxOutsideImage(t *testing.T) {
	_, ok := ClampBox([4]float64{2000, 2000, 2100, 2100}, 10, 100, 100)
	assert.False(t, ok)
}

func TestLocateWithoutTablesStillWritesBoxes(t *testing.T) {
	dir := t.TempDir()
	detector := &fakeDetector{detections: []models.Detection{
		{Label: models.LabelTable, Score: 0.5, Box: [4]float64{1, 1, 10, 10}},
	}}
	locator := NewTableLocator(detector, nil, LocatorOptions{OutDir: dir, Margin: DefaultCropMargin})

	result, err := locator.Locate(context.Background(), testImage(64, 48), "doc", 2)
	require.NoError(t, err)

	assert.Empty(t, result.Tables)
	assert.Equal(t, filepath.Join(dir, "doc_page_2_boxes.png"), result.BoxesPath)
	assert.FileExists(t, result.BoxesPath)
}

func TestLocateCropsTables(t *testing.T) {
	dir := t.TempDir()
	detector := &fakeDetector{detections: []models.Detection{
		{Label: models.LabelTable, Score: 0.99, Box: [4]float64{20, 20, 60, 40}},
		{Label: models.LabelTable, Score: 0.20, Box: [4]float64{0, 0, 5, 5}},
		{Label: "table rotated", Score: 0.99, Box: [4]float64{10, 10, 30, 30}},
		{Label: models.LabelTable, Score: 0.985, Box: [4]float64{70, 50, 90, 70}},
	}}
	locator := NewTableLocator(detector, nil, LocatorOptions{OutDir: dir, Margin: 10})

	result, err := locator.Locate(context.Background(), testImage(100, 80), "report", 3)
	require.NoError(t, err)
	require.Len(t, result.Tables, 2)

	first := result.Tables[0]
	assert.Equal(t, models.ArtifactKey("page_3_table_1"), first.Key)
	assert.Equal(t, filepath.Join(dir, "report_page_3_table_1.png"), first.Path)
	assert.FileExists(t, first.Path)
	// 20-25 -> 0, 60+25 -> 85; 20-10 -> 10, 40+10 -> 50
	assert.Equal(t, 85, first.Image.Bounds().Dx())
	assert.Equal(t, 40, first.Image.Bounds().Dy())

	second := result.Tables[1]
	assert.Equal(t, models.ArtifactKey("page_3_table_3"), second.Key)
	assert.Equal(t, 3, second.Index)
	assert.FileExists(t, filepath.Join(dir, "report_page_3_table_3.png"))
	assert.FileExists(t, result.BoxesPath)
}

func TestLocateDetectionError(t *testing.T) {
	locator := NewTableLocator(&fakeDetector{err: models.ErrModelError}, nil, LocatorOptions{OutDir: t.TempDir()})

	_, err := locator.Locate(context.Background(), testImage(10, 10), "doc", 1)
	assert.True(t, errors.Is(err, models.ErrModelError))
}

func TestRecognizeStructureWritesVisualization(t *testing.T) {
	dir := t.TempDir()
	structure := &fakeDetector{detections: []models.Detection{
		{Label: "table row", Score: 0.9, Box: [4]float64{0, 0, 20, 5}},
		{Label: "table column", Score: 0.8, Box: [4]float64{0, 0, 5, 10}},
	}}
	locator := NewTableLocator(&fakeDetector{}, structure, LocatorOptions{OutDir: dir})

	crops := []CroppedTable{
		{Key: "page_1_table_1", Path: filepath.Join(dir, "doc_page_1_table_1.png"), Image: testImage(20, 10)},
		{Key: "page_1_table_2", Path: filepath.Join(dir, "doc_page_1_table_2.png"), Image: testImage(20, 10)},
	}
	paths := locator.RecognizeStructure(context.Background(), crops)

	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "doc_page_1_table_1_structure.png"), paths["page_1_table_1"])
	assert.FileExists(t, paths["page_1_table_2"])
	assert.Equal(t, 2, structure.calls)
}
