package services

import (
	"context"
	"fmt"

	"vlmax-platform/internal/ai"
	"vlmax-platform/internal/config"
	"vlmax-platform/internal/telemetry"
)

// NewPipelineFromConfig wires the model clients, locator, converter and
// artifact store used by the server, the worker and the pipeline CLI. The
// returned close function releases the model client.
func NewPipelineFromConfig(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*DocumentPipeline, *ai.GeminiClient, func(), error) {
	if err := cfg.RequireModels(); err != nil {
		return nil, nil, nil, err
	}

	gemini, err := ai.NewGeminiClient(ctx, cfg, metrics)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}

	detector := ai.NewDetectionClient(cfg.DetectionServiceURL, cfg.DetectionModel, cfg.ModelTimeout, metrics)
	structure := ai.NewDetectionClient(cfg.DetectionServiceURL, cfg.StructureModel, cfg.ModelTimeout, metrics)

	locator := NewTableLocator(detector, structure, LocatorOptions{
		OutDir:             cfg.PreprocessDir,
		Threshold:          cfg.DetectionThreshold,
		StructureThreshold: cfg.StructureThreshold,
		Margin:             cfg.CropMargin,
	})
	converter := NewMarkupConverter(gemini, cfg.MarkupMaxTokens)
	store := NewArtifactStore(cfg)
	source := NewDocumentSource(cfg.RenderDPI, cfg.MaxPDFPages)

	pipeline := NewDocumentPipeline(source, locator, converter, store, metrics)
	closeFn := func() { gemini.Close() }
	return pipeline, gemini, closeFn, nil
}

// Store exposes the pipeline's artifact store.
func (p *DocumentPipeline) Store() *ArtifactStore {
	return p.store
}
