package services

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"vlmax-platform/internal/ai"
	"vlmax-platform/internal/logger"
	"vlmax-platform/models"
)

const (
	DefaultDetectionThreshold = 0.98
	DefaultStructureThreshold = 0.6
	DefaultCropMargin         = 10

	// extra padding applied on the left and right of every crop only
	horizontalPadding = 15
)

// CroppedTable is one table region cut out of a page.
type CroppedTable struct {
	Key   models.ArtifactKey
	Page  int
	Index int
	Path  string
	Image image.Image
}

// LocateResult is the outcome of locating tables on one page.
type LocateResult struct {
	Tables    []CroppedTable
	BoxesPath string
}

// TableLocator finds tables on page images and saves the cropped regions.
type TableLocator struct {
	detector           ai.Detector
	structure          ai.Detector
	visualizer         *Visualizer
	outDir             string
	threshold          float64
	structureThreshold float64
	margin             int
}

type LocatorOptions struct {
	OutDir             string
	Threshold          float64
	StructureThreshold float64
	Margin             int
}

func NewTableLocator(detector, structure ai.Detector, opts LocatorOptions) *TableLocator {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultDetectionThreshold
	}
	if opts.StructureThreshold <= 0 {
		opts.StructureThreshold = DefaultStructureThreshold
	}
	if opts.Margin < 0 {
		opts.Margin = DefaultCropMargin
	}
	return &TableLocator{
		detector:           detector,
		structure:          structure,
		visualizer:         NewVisualizer(),
		outDir:             opts.OutDir,
		threshold:          opts.Threshold,
		structureThreshold: opts.StructureThreshold,
		margin:             opts.Margin,
	}
}

// Locate detects tables on one page, writes a crop per table and the boxes
// visualization of the page. The visualization is written even when no
// table passes the threshold.
func (l *TableLocator) Locate(ctx context.Context, page image.Image, document string, pageNumber int) (*LocateResult, error) {
	detections, err := l.detector.Detect(ctx, page, l.threshold)
	if err != nil {
		return nil, fmt.Errorf("table detection failed on page %d: %w", pageNumber, err)
	}

	kept := detections[:0:0]
	for _, d := range detections {
		if d.Score >= l.threshold {
			kept = append(kept, d)
		}
	}

	if err := os.MkdirAll(l.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", l.outDir, err)
	}

	result := &LocateResult{
		BoxesPath: filepath.Join(l.outDir, fmt.Sprintf("%s_page_%d_boxes.png", document, pageNumber)),
	}
	if err := l.visualizer.Render(page, kept, result.BoxesPath); err != nil {
		return nil, err
	}

	bounds := page.Bounds()
	for i, d := range kept {
		if d.Label != models.LabelTable {
			continue
		}
		region, ok := ClampBox(d.Box, l.margin, bounds.Dx(), bounds.Dy())
		if !ok {
			logger.Warn("Skipping degenerate table box", "page", pageNumber, "box", d.Box)
			continue
		}

		crop := cropImage(page, region.Add(bounds.Min))
		idx := i + 1
		path := filepath.Join(l.outDir, fmt.Sprintf("%s_page_%d_table_%d.png", document, pageNumber, idx))
		if err := savePNG(crop, path); err != nil {
			return nil, err
		}

		result.Tables = append(result.Tables, CroppedTable{
			Key:   models.NewArtifactKey(pageNumber, idx),
			Page:  pageNumber,
			Index: idx,
			Path:  path,
			Image: crop,
		})
	}

	if len(result.Tables) == 0 {
		logger.Info("No tables found", "document", document, "page", pageNumber)
	}
	return result, nil
}

// RecognizeStructure runs structure recognition on each crop and writes a
// <crop>_structure.png visualization next to it. Failures for one crop are
// logged and skipped.
func (l *TableLocator) RecognizeStructure(ctx context.Context, crops []CroppedTable) map[models.ArtifactKey]string {
	out := make(map[models.ArtifactKey]string, len(crops))
	if l.structure == nil {
		return out
	}

	for _, crop := range crops {
		detections, err := l.structure.Detect(ctx, crop.Image, l.structureThreshold)
		if err != nil {
			logger.Error("Structure recognition failed", "key", crop.Key, "error", err)
			continue
		}

		path := strings.TrimSuffix(crop.Path, filepath.Ext(crop.Path)) + "_structure.png"
		if err := l.visualizer.Render(crop.Image, detections, path); err != nil {
			logger.Error("Failed to write structure visualization", "key", crop.Key, "error", err)
			continue
		}
		out[crop.Key] = path
	}
	return out
}

// ClampBox expands a detection box by margin vertically and margin+15
// horizontally, then clamps it to a width x height image. ok is false when
// the clamped region is empty.
func ClampBox(box [4]float64, margin, width, height int) (image.Rectangle, bool) {
	xmin := clampInt(int(box[0])-margin-horizontalPadding, 0, width)
	ymin := clampInt(int(box[1])-margin, 0, height)
	xmax := clampInt(int(box[2])+margin+horizontalPadding, 0, width)
	ymax := clampInt(int(box[3])+margin, 0, height)

	if xmin >= xmax || ymin >= ymax {
		return image.Rectangle{}, false
	}
	return image.Rect(xmin, ymin, xmax, ymax), true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cropImage(src image.Image, region image.Rectangle) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), src, region.Min, draw.Src)
	return dst
}
