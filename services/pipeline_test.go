package services

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"vlmax-platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	pipeline  *DocumentPipeline
	detector  *fakeDetector
	structure *fakeDetector
	generator *fakeGenerator
	store     *ArtifactStore
	dir       string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	cfg := testConfig(t)

	f := &pipelineFixture{
		detector: &fakeDetector{detections: []models.Detection{
			{Label: models.LabelTable, Score: 0.995, Box: [4]float64{10, 10, 50, 30}},
		}},
		structure: &fakeDetector{detections: []models.Detection{
			{Label: "table row", Score: 0.7, Box: [4]float64{0, 0, 10, 5}},
		}},
		generator: &fakeGenerator{html: sampleTableHTML},
		store:     NewArtifactStore(cfg),
		dir:       t.TempDir(),
	}
	locator := NewTableLocator(f.detector, f.structure, LocatorOptions{OutDir: cfg.PreprocessDir, Margin: 10})
	f.pipeline = NewDocumentPipeline(NewDocumentSource(0, 0), locator, NewMarkupConverter(f.generator, 0), f.store, nil)
	return f
}

func TestProcessImage(t *testing.T) {
	f := newPipelineFixture(t)
	input := filepath.Join(f.dir, "invoice.png")
	writeTestPNG(t, input, 80, 60)

	run, err := f.pipeline.Process(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "invoice", run.Document)
	assert.Equal(t, 1, run.Pages)
	assert.Equal(t, 1, run.Tables())

	rec := run.Index()["page_1_table_1"]
	require.NotNil(t, rec)
	assert.Equal(t, "/preprocess_results/invoice_page_1_table_1.png", rec.Main)
	assert.Equal(t, "/preprocess_results/invoice_page_1_boxes.png", rec.Boxes)
	assert.Equal(t, "/preprocess_results/invoice_page_1_table_1_structure.png", rec.Structure)
	assert.NotEmpty(t, rec.HTML)
	assert.NotEmpty(t, rec.CSV)
	assert.NotEmpty(t, rec.XLSX)

	index, err := f.store.ReadIndex()
	require.NoError(t, err)
	assert.Len(t, index, 1)

	merged, err := f.store.ReadMerged()
	require.NoError(t, err)
	assert.Contains(t, merged, "<table>")
	assert.Contains(t, merged, "apple")
}

func TestProcessPageWithoutTables(t *testing.T) {
	f := newPipelineFixture(t)
	f.detector.detections = nil
	input := filepath.Join(f.dir, "blank.png")
	writeTestPNG(t, input, 40, 40)

	run, err := f.pipeline.Process(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 0, run.Tables())
	assert.Empty(t, run.Index())
	assert.Equal(t, 0, f.generator.calls)
	assert.Equal(t, 0, f.structure.calls)
	assert.FileExists(t, filepath.Join(f.store.cfg.PreprocessDir, "blank_page_1_boxes.png"))
}

func TestProcessRejectsBadInput(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.pipeline.Process(context.Background(), filepath.Join(f.dir, "missing.pdf"))
	assert.ErrorIs(t, err, models.ErrFileNotFound)

	notes := filepath.Join(f.dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o644))
	_, err = f.pipeline.Process(context.Background(), notes)
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestProcessModelErrorAbortsRun(t *testing.T) {
	f := newPipelineFixture(t)
	f.generator.err = models.ErrModelError
	input := filepath.Join(f.dir, "scan.png")
	writeTestPNG(t, input, 80, 60)

	_, err := f.pipeline.Process(context.Background(), input)
	assert.ErrorIs(t, err, models.ErrModelError)
	assert.NoFileExists(t, f.store.cfg.IndexPath)
}

func TestProcessSkipsPageOnDetectionError(t *testing.T) {
	f := newPipelineFixture(t)
	f.detector.err = models.ErrModelError
	input := filepath.Join(f.dir, "scan.png")
	writeTestPNG(t, input, 80, 60)

	run, err := f.pipeline.Process(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Tables())
	assert.FileExists(t, f.store.cfg.IndexPath)
}

type staticPages struct {
	pages []image.Image
}

func (s staticPages) Pages(_ context.Context, _ string, visit PageVisitor) (int, error) {
	for i, p := range s.pages {
		if err := visit(i+1, p); err != nil {
			return i, err
		}
	}
	return len(s.pages), nil
}

func TestProcessMultiplePagesInKeyOrder(t *testing.T) {
	f := newPipelineFixture(t)
	f.pipeline.source = staticPages{pages: []image.Image{testImage(80, 60), testImage(80, 60), testImage(80, 60)}}

	input := filepath.Join(f.dir, "book.pdf")
	require.NoError(t, os.WriteFile(input, []byte("%PDF-1.4"), 0o644))

	run, err := f.pipeline.Process(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 3, run.Pages)
	assert.Equal(t, 3, f.generator.calls)
	assert.Equal(t, []models.ArtifactKey{"page_1_table_1", "page_2_table_1", "page_3_table_1"}, run.Index().Keys())
}
