package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"sentimark/internal/classify"
	"sentimark/internal/services"
)

const (
	componentName          = "anthropic"
	defaultModel           = "claude-3-5-haiku-latest"
	defaultHTTPTimeout     = 30 * time.Second
	defaultMaxOutputTokens = 256
)

// Client wraps the Anthropic Messages API. SDK-level retries are disabled;
// the batch scheduler paces requests and records failed items.
type Client struct {
	api    sdk.Client
	apiKey string
	model  string
}

// Config captures the runtime settings for the Anthropic backend.
type Config struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// New constructs a client using the supplied configuration. Extra request
// options are appended after the defaults (useful for tests).
func New(cfg Config, opts ...option.RequestOption) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	requestOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}, opts...)
	return &Client{
		api:    sdk.NewClient(requestOpts...),
		apiKey: apiKey,
		model:  model,
	}
}

// Name identifies this backend in logs and run records.
func (c *Client) Name() string { return componentName }

// Complete sends the prompt verbatim as a single user message and returns
// the joined text blocks of the reply.
func (c *Client) Complete(ctx context.Context, req classify.CompletionRequest) (classify.Completion, error) {
	var empty classify.Completion
	if strings.TrimSpace(req.Prompt) == "" {
		return empty, services.Wrap(services.ErrValidation, componentName, "complete", "prompt required", nil)
	}
	if c.apiKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, componentName, "complete", "api key required", nil)
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	start := time.Now()
	message, err := c.api.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Temperature: sdk.Float(req.Temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return empty, c.classifyFailure("complete", err)
	}
	text := textContent(message)
	if text == "" {
		return empty, services.Wrap(services.ErrRemoteCall, componentName, "complete",
			fmt.Sprintf("empty reply (stop_reason=%q)", message.StopReason), nil)
	}
	model := strings.TrimSpace(string(message.Model))
	if model == "" {
		model = c.model
	}
	return classify.Completion{Text: text, Model: model, Latency: time.Since(start)}, nil
}

// HealthCheck verifies the key and model with a minimal message request.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return services.Wrap(services.ErrConfiguration, componentName, "health", "api key required", nil)
	}
	message, err := c.api.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 8,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock("Reply with the single word OK.")),
		},
	})
	if err != nil {
		return c.classifyFailure("health", err)
	}
	if textContent(message) == "" {
		return services.Wrap(services.ErrRemoteCall, componentName, "health", "empty reply", nil)
	}
	return nil
}

func (c *Client) classifyFailure(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, componentName, operation, "credentials rejected", err)
		}
	}
	return services.Wrap(services.ErrRemoteCall, componentName, operation, "", err)
}

func textContent(message *sdk.Message) string {
	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(text.String())
}
