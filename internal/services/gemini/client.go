package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sentimark/internal/classify"
	"sentimark/internal/services"
)

const (
	componentName          = "gemini"
	defaultBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel           = "gemini-2.5-flash-lite"
	defaultHTTPTimeout     = 30 * time.Second
	defaultMaxOutputTokens = 256
	textMimeType           = "text/plain"
)

// Client wraps the Generative Language generateContent API. Calls are made
// once; the batch scheduler paces requests and records failed items, so 429s
// surface instead of stretching the paced slot.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Config captures the runtime settings for the Generative Language API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a client using the supplied configuration.
func New(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Name identifies this backend in logs and run records.
func (c *Client) Name() string { return componentName }

// Complete sends the prompt verbatim as a single-part content and returns
// the joined candidate text.
func (c *Client) Complete(ctx context.Context, req classify.CompletionRequest) (classify.Completion, error) {
	var empty classify.Completion
	if strings.TrimSpace(req.Prompt) == "" {
		return empty, services.Wrap(services.ErrValidation, componentName, "complete", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, componentName, "complete", "api key required", nil)
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	payload := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      req.Temperature,
			MaxOutputTokens:  maxTokens,
			ResponseMimeType: textMimeType,
		},
	}

	start := time.Now()
	response, err := c.sendGenerateRequest(ctx, payload)
	if err != nil {
		return empty, c.classifyFailure("complete", err)
	}
	text, finishReason := extractCandidateText(response)
	if text == "" {
		if reason := blockReason(response); reason != "" {
			return empty, services.Wrap(services.ErrRemoteCall, componentName, "complete", "prompt blocked: "+reason, nil)
		}
		return empty, services.Wrap(services.ErrRemoteCall, componentName, "complete",
			fmt.Sprintf("empty reply (finish_reason=%q)", finishReason), nil)
	}
	model := strings.TrimSpace(response.ModelVersion)
	if model == "" {
		model = c.cfg.Model
	}
	return classify.Completion{Text: text, Model: model, Latency: time.Since(start)}, nil
}

// HealthCheck verifies the key and model with a minimal generation request.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, componentName, "health", "api key required", nil)
	}
	payload := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: "Reply with the single word OK."}}}},
		GenerationConfig: generationConfig{
			MaxOutputTokens:  8,
			ResponseMimeType: textMimeType,
		},
	}
	response, err := c.sendGenerateRequest(ctx, payload)
	if err != nil {
		return c.classifyFailure("health", err)
	}
	if text, _ := extractCandidateText(response); text == "" {
		return services.Wrap(services.ErrRemoteCall, componentName, "health", "empty reply", nil)
	}
	return nil
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      generateContent `json:"content"`
		FinishReason string          `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	ModelVersion string `json:"modelVersion"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) sendGenerateRequest(ctx context.Context, payload generateRequest) (generateResponse, error) {
	var response generateResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model+":generateContent")
	if err != nil {
		return response, fmt.Errorf("build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return response, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return response, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response, fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return response, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return response, &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return response, fmt.Errorf("decode response: %w", err)
	}
	if response.Error != nil {
		return response, fmt.Errorf("api error: %s", strings.TrimSpace(response.Error.Message))
	}
	return response, nil
}

func (c *Client) classifyFailure(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) && statusErr.Unauthorized() {
		return services.Wrap(services.ErrConfiguration, componentName, operation, "credentials rejected", err)
	}
	return services.Wrap(services.ErrRemoteCall, componentName, operation, "", err)
}

func extractCandidateText(response generateResponse) (string, string) {
	var finishReason string
	for _, candidate := range response.Candidates {
		if finishReason == "" {
			finishReason = strings.TrimSpace(candidate.FinishReason)
		}
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		if joined := strings.TrimSpace(text.String()); joined != "" {
			return joined, finishReason
		}
	}
	return "", finishReason
}

func blockReason(response generateResponse) string {
	if response.PromptFeedback == nil {
		return ""
	}
	return strings.TrimSpace(response.PromptFeedback.BlockReason)
}
