package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"vlmax-platform/internal/logger"
	"vlmax-platform/internal/telemetry"
	"vlmax-platform/models"
	"vlmax-platform/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DocumentPipeline turns an input document into table artifacts:
// render pages, locate tables, convert each table to HTML/CSV/XLSX,
// then write results.json and results.html.
type DocumentPipeline struct {
	source    PageSource
	locator   *TableLocator
	converter *MarkupConverter
	store     *ArtifactStore
	metrics   *telemetry.Metrics
}

func NewDocumentPipeline(source PageSource, locator *TableLocator, converter *MarkupConverter, store *ArtifactStore, metrics *telemetry.Metrics) *DocumentPipeline {
	return &DocumentPipeline{
		source:    source,
		locator:   locator,
		converter: converter,
		store:     store,
		metrics:   metrics,
	}
}

// Process runs the whole pipeline for one input file.
func (p *DocumentPipeline) Process(ctx context.Context, inputPath string) (run *RunContext, err error) {
	ctx, span := otel.Tracer("pipeline").Start(ctx, "pipeline.process")
	defer span.End()
	span.SetAttributes(attribute.String("pipeline.input", inputPath))

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		p.metrics.RecordPipelineRun(time.Since(start).Seconds(), status)
	}()

	if _, statErr := os.Stat(inputPath); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", inputPath, models.ErrFileNotFound)
		}
		return nil, statErr
	}
	if !utils.IsPDF(inputPath) && !utils.IsSupportedImage(inputPath) {
		return nil, fmt.Errorf("%s: %w", inputPath, models.ErrUnsupportedFormat)
	}

	if err := p.store.EnsureDirs(); err != nil {
		return nil, err
	}

	run = NewRunContext(utils.FileStem(inputPath))
	log := logger.With("document", run.Document)
	log.Info("Pipeline started", "input", inputPath)

	pages, err := p.source.Pages(ctx, inputPath, func(pageNumber int, page image.Image) error {
		p.processPage(ctx, run, pageNumber, page)
		return nil
	})
	run.Pages = pages
	if err != nil {
		return run, err
	}

	if err := p.convertTables(ctx, run); err != nil {
		return run, err
	}

	if err := p.store.WriteIndex(run); err != nil {
		return run, err
	}
	if _, err := p.store.WriteMerged(); err != nil {
		return run, err
	}

	span.SetAttributes(
		attribute.Int("pipeline.pages", run.Pages),
		attribute.Int("pipeline.tables", run.Tables()),
	)
	log.Info("Pipeline finished", "pages", run.Pages, "tables", run.Tables(), "duration", time.Since(start).String())
	return run, nil
}

// processPage locates the tables of one page and records the crop,
// boxes and structure paths. Detection failures skip the page.
func (p *DocumentPipeline) processPage(ctx context.Context, run *RunContext, pageNumber int, page image.Image) {
	result, err := p.locator.Locate(ctx, page, run.Document, pageNumber)
	if err != nil {
		logger.Error("Skipping page", "document", run.Document, "page", pageNumber, "error", err)
		p.metrics.RecordPage(0)
		return
	}
	p.metrics.RecordPage(len(result.Tables))

	cfg := p.store.cfg
	for _, crop := range result.Tables {
		p.record(run, crop.Key, models.FieldMain, cfg.PublicPath(crop.Path))
		p.record(run, crop.Key, models.FieldBoxes, cfg.PublicPath(result.BoxesPath))
	}
	run.addCrops(result.Tables)

	if len(result.Tables) == 0 {
		return
	}
	for key, path := range p.locator.RecognizeStructure(ctx, result.Tables) {
		p.record(run, key, models.FieldStructure, cfg.PublicPath(path))
	}
}

// convertTables converts every located table in key order. Model errors
// abort the run; tables whose HTML holds no <table> keep their HTML and
// are logged.
func (p *DocumentPipeline) convertTables(ctx context.Context, run *RunContext) error {
	run.mu.Lock()
	crops := append([]CroppedTable(nil), run.crops...)
	run.mu.Unlock()

	for _, crop := range crops {
		html, err := p.converter.Convert(ctx, crop.Image)
		if err != nil {
			return fmt.Errorf("%s: %w", crop.Key, err)
		}

		hash, err := p.store.RecordConversion(run, crop.Key, html)
		if err != nil {
			if errors.Is(err, models.ErrTableNotFound) {
				logger.Warn("Generated markup has no table", "key", crop.Key, "hash", hash)
				continue
			}
			return err
		}
		logger.Debug("Table converted", "key", crop.Key, "hash", hash)
	}
	return nil
}

func (p *DocumentPipeline) record(run *RunContext, key models.ArtifactKey, field models.ArtifactField, path string) {
	if err := run.Record(key, field, path); err != nil {
		logger.Error("Failed to record artifact", "key", key, "field", field, "error", err)
	}
}
