package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/internal/telemetry"
	"vlmax-platform/models"

	"github.com/sony/gobreaker"
)

const defaultOCRURL = "http://localhost:8001"

// OCRClient talks to a tesseract-backed word recognition service.
type OCRClient struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	metrics    *telemetry.Metrics
}

// wordRow mirrors one row of tesseract's image_to_data output.
type wordRow struct {
	Text   string `json:"text"`
	Conf   int    `json:"conf"`
	Left   int    `json:"left"`
	Top    int    `json:"top"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type wordsResponse struct {
	Success bool      `json:"success"`
	Words   []wordRow `json:"words"`
	Error   string    `json:"error,omitempty"`
}

func NewOCRClient(cfg *config.Config, metrics *telemetry.Metrics) *OCRClient {
	baseURL := cfg.OCRServiceURL
	if baseURL == "" {
		baseURL = defaultOCRURL
	}
	return &OCRClient{
		httpClient: &http.Client{Timeout: time.Duration(cfg.OCRTimeout) * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		breaker:    newBreaker("ocr", metrics),
		metrics:    metrics,
	}
}

// IsHealthy reports whether GET /health answers {"status":"healthy"}.
func (c *OCRClient) IsHealthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, fmt.Errorf("decode health: %w", err)
	}
	return health.Status == "healthy", nil
}

// Recognize uploads the image at path and returns every word the engine
// reported, unfiltered, with boxes converted to corner coordinates.
func (c *OCRClient) Recognize(ctx context.Context, path string) ([]models.OCRWord, error) {
	if healthy, err := c.IsHealthy(ctx); err != nil || !healthy {
		return nil, fmt.Errorf("%w: ocr service unavailable (healthy=%t, err=%v)", models.ErrModelError, healthy, err)
	}

	body, contentType, err := multipartFile("file", path)
	if err != nil {
		return nil, err
	}

	rows, err := run(c.breaker, c.metrics, "ocr", func() ([]wordRow, error) {
		return c.postWords(ctx, contentType, body)
	})
	if err != nil {
		return nil, err
	}

	words := make([]models.OCRWord, len(rows))
	for i, r := range rows {
		words[i] = models.OCRWord{
			Word:       r.Text,
			Confidence: r.Conf,
			BBox:       [4]int{r.Left, r.Top, r.Left + r.Width, r.Top + r.Height},
		}
	}
	return words, nil
}

func multipartFile(field, path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	n, err := io.Copy(part, f)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	logger.Debug("OCR upload prepared", "file", filepath.Base(path), "bytes", n)
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func (c *OCRClient) postWords(ctx context.Context, contentType string, body []byte) ([]wordRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr/words", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out wordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("ocr engine: %s", out.Error)
	}
	return out.Words, nil
}
