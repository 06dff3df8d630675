package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/telemetry"
	"vlmax-platform/models"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const markupPrompt = "Convert the table in this image to a single HTML <table>. " +
	"Use <th> for header cells and <td> for body cells, one <tr> per row. " +
	"Reproduce the cell text exactly. Return only the HTML."

// GeminiClient backs both the chat and the image-to-markup capabilities.
type GeminiClient struct {
	client        *genai.Client
	breaker       *gobreaker.CircuitBreaker
	rateLimiter   *rate.Limiter
	metrics       *telemetry.Metrics
	chatModel     string
	markupModel   string
	chatMaxTokens int
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGeminiClient(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	limits := getRateLimits(cfg.ModelTier)
	// RPM limit with some buffer
	burst := limits.RPM / 10
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), burst)

	return &GeminiClient{
		client:        client,
		breaker:       newBreaker("GeminiAPI", metrics),
		rateLimiter:   rateLimiter,
		metrics:       metrics,
		chatModel:     cfg.ChatModel,
		markupModel:   cfg.MarkupModel,
		chatMaxTokens: cfg.ChatMaxTokens,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// Complete sends the conversation to the chat model. A leading system turn
// becomes the system instruction, the last turn is the message being sent
// and everything in between is replayed as history.
func (gc *GeminiClient) Complete(ctx context.Context, turns []models.Turn) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.complete")
	defer span.End()

	if len(turns) == 0 {
		return "", fmt.Errorf("%w: empty conversation", models.ErrInputMissing)
	}

	model := gc.client.GenerativeModel(gc.chatModel)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(int32(gc.chatMaxTokens))

	rest := turns
	if rest[0].Role == models.RoleSystem {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(rest[0].Content)}}
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "", fmt.Errorf("%w: no user turn", models.ErrInputMissing)
	}

	cs := model.StartChat()
	for _, t := range rest[:len(rest)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  geminiRole(t.Role),
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	last := rest[len(rest)-1]

	span.SetAttributes(
		attribute.String("gemini.model", gc.chatModel),
		attribute.Int("gemini.history_turns", len(cs.History)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", fmt.Errorf("%w: %v", models.ErrModelError, err)
	}

	text, err := run(gc.breaker, gc.metrics, "chat", func() (string, error) {
		resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
		if err != nil {
			return "", err
		}
		return responseText(resp)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", err
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return strings.TrimSpace(text), nil
}

// GenerateMarkup asks the vision model for the HTML of a cropped table.
func (gc *GeminiClient) GenerateMarkup(ctx context.Context, png []byte, maxNewTokens int) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_markup")
	defer span.End()

	model := gc.client.GenerativeModel(gc.markupModel)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(int32(maxNewTokens))

	span.SetAttributes(
		attribute.String("gemini.model", gc.markupModel),
		attribute.Int("gemini.image_bytes", len(png)),
		attribute.Int("gemini.max_new_tokens", maxNewTokens),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrModelError, err)
	}

	text, err := run(gc.breaker, gc.metrics, "markup", func() (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(markupPrompt), genai.ImageData("png", png))
		if err != nil {
			return "", err
		}
		return responseText(resp)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", err
	}
	return stripCodeFence(text), nil
}

func geminiRole(role string) string {
	if role == models.RoleAssistant {
		return "model"
	}
	return "user"
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// stripCodeFence removes a surrounding ```html ... ``` block if the model
// added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
