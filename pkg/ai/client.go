package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rubriq",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of model requests",
	}, []string{"operation", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rubriq",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed model requests",
	}, []string{"operation", "model"})
)

// ClientConfig defines configuration options for the OpenRouter-compatible client.
type ClientConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int
	Temperature  float32
	Logger       zerolog.Logger
}

// Client talks to an OpenAI-compatible chat-completion API and parses the
// structured JSON the grading workflows expect.
type Client struct {
	api    *openai.Client
	cfg    ClientConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewClient builds a client against the configured base URL and API key.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}

	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	tracer := otel.Tracer("github.com/rubriq/rubriq-api/pkg/ai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		api:    openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "ai_client").Logger(),
	}, nil
}

func (c *Client) model(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return c.cfg.DefaultModel
}

// completeJSON runs a chat completion in json_object mode and returns the raw
// response text with any Markdown code fence removed.
func (c *Client) completeJSON(parent context.Context, operation, model string, messages []openai.ChatCompletionMessage) (string, error) {
	ctx, span := c.tracer.Start(parent, "ai."+operation, trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          model,
		MaxTokens:      c.cfg.MaxTokens,
		Temperature:    c.cfg.Temperature,
		Messages:       messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	aiDuration.WithLabelValues(operation, model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(operation, model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", classifyProviderError(operation, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%s: no choices returned: %w", operation, ErrMalformedResponse)
		aiFailures.WithLabelValues(operation, model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return stripCodeFence(resp.Choices[0].Message.Content), nil
}

func classifyProviderError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 401 {
		return fmt.Errorf("%s: %w: %s", operation, ErrUnauthorized, apiErr.Message)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// stripCodeFence defensively removes a surrounding Markdown code fence from
// model output before JSON parsing.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (```json).
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}

// decodeValidated checks the payload against the given schema before
// unmarshalling into the target struct.
func decodeValidated(schema *jsonschema.Schema, payload string, target interface{}) error {
	var generic interface{}
	if err := json.Unmarshal([]byte(payload), &generic); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

// ExtractText transcribes a PDF page or image via a vision-capable model.
func (c *Client) ExtractText(parent context.Context, input VisionInput) (string, error) {
	model := c.model(input.Model)
	ctx, span := c.tracer.Start(parent, "ai.vision_extract", trace.WithAttributes(
		attribute.String("model", model),
		attribute.String("mime_type", input.MIMEType),
	))
	defer span.End()

	dataURI := fmt.Sprintf("data:%s;base64,%s", input.MIMEType, base64.StdEncoding.EncodeToString(input.Data))

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Transcribe all text in this document exactly as written. Output plain text only.",
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURI},
					},
				},
			},
		},
	})
	aiDuration.WithLabelValues("vision_extract", model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues("vision_extract", model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", classifyProviderError("vision_extract", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("vision_extract: no choices returned: %w", ErrMalformedResponse)
		aiFailures.WithLabelValues("vision_extract", model).Inc()
		span.RecordError(err)
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
