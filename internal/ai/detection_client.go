package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"vlmax-platform/internal/telemetry"
	"vlmax-platform/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DetectionClient calls a model host serving a table-transformer style
// object detector.
type DetectionClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *telemetry.Metrics
}

type detectRequest struct {
	Model     string  `json:"model"`
	ImageB64  string  `json:"image_b64"`
	Threshold float64 `json:"threshold"`
}

type detectResponse struct {
	Detections []models.Detection `json:"detections"`
	Error      string             `json:"error,omitempty"`
}

func NewDetectionClient(baseURL, model string, timeout time.Duration, metrics *telemetry.Metrics) *DetectionClient {
	return &DetectionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: newBreaker("Detection:"+model, metrics),
		metrics: metrics,
	}
}

func (c *DetectionClient) Detect(ctx context.Context, img image.Image, threshold float64) ([]models.Detection, error) {
	ctx, span := otel.Tracer("detection-client").Start(ctx, "detection.detect")
	defer span.End()
	span.SetAttributes(
		attribute.String("detection.model", c.model),
		attribute.Float64("detection.threshold", threshold),
	)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page image: %w", err)
	}

	body, err := json.Marshal(detectRequest{
		Model:     c.model,
		ImageB64:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Threshold: threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	detections, err := run(c.breaker, c.metrics, "detect", func() ([]models.Detection, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("detection.error", true))
		return nil, err
	}

	// The host is asked to apply the threshold; filter again in case it
	// returned raw logits-level output.
	kept := detections[:0]
	for _, d := range detections {
		if d.Score >= threshold {
			kept = append(kept, d)
		}
	}
	span.SetAttributes(attribute.Int("detection.count", len(kept)))
	return kept, nil
}

func (c *DetectionClient) post(ctx context.Context, body []byte) ([]models.Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create detection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("detection failed: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("detection service error: %s", parsed.Error)
	}
	return parsed.Detections, nil
}
