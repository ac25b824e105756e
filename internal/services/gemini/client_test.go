package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sentimark/internal/classify"
	"sentimark/internal/services"
)

func generateReply(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
					"role":  "model",
				},
				"finishReason": "STOP",
			},
		},
		"modelVersion": "gemini-2.5-flash-lite-001",
	}
}

func TestCompleteSendsGenerateRequest(t *testing.T) {
	prompt := "Mode instruction: STRICT mode active.\n\nReview: \"Great acting.\"\nReturn the JSON now."
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/demo-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read request: %v", err)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(generateReply(`{"label": "Positive"}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := New(Config{APIKey: "test-key", BaseURL: server.URL, Model: "demo-model"})
	completion, err := client.Complete(context.Background(), classify.CompletionRequest{
		Prompt:          prompt,
		Temperature:     0.2,
		MaxOutputTokens: 256,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 1 {
		t.Fatalf("expected single-part content, got %+v", captured.Contents)
	}
	if captured.Contents[0].Parts[0].Text != prompt {
		t.Errorf("prompt was altered in transit:\nsent %q\ngot  %q", prompt, captured.Contents[0].Parts[0].Text)
	}
	if captured.GenerationConfig.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", captured.GenerationConfig.Temperature)
	}
	if captured.GenerationConfig.MaxOutputTokens != 256 {
		t.Errorf("expected maxOutputTokens 256, got %d", captured.GenerationConfig.MaxOutputTokens)
	}
	if captured.GenerationConfig.ResponseMimeType != "text/plain" {
		t.Errorf("expected text/plain mime type, got %q", captured.GenerationConfig.ResponseMimeType)
	}

	if completion.Text != `{"label": "Positive"}` {
		t.Errorf("unexpected completion text %q", completion.Text)
	}
	if completion.Model != "gemini-2.5-flash-lite-001" {
		t.Errorf("expected model from response, got %q", completion.Model)
	}
	if completion.Latency <= 0 {
		t.Errorf("expected positive latency, got %v", completion.Latency)
	}
}

func TestCompleteJoinsCandidateParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"parts": []any{
							map[string]any{"text": `{"label": `},
							map[string]any{"text": `"Neutral"}`},
						},
					},
					"finishReason": "STOP",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	completion, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if completion.Text != `{"label": "Neutral"}` {
		t.Fatalf("expected joined parts, got %q", completion.Text)
	}
	if completion.Model != "demo" {
		t.Fatalf("expected configured model fallback, got %q", completion.Model)
	}
}

func TestCompleteEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected remote call marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "empty reply") {
		t.Fatalf("expected empty reply detail, got %v", err)
	}
}

func TestCompleteBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"candidates":     []any{},
			"promptFeedback": map[string]any{"blockReason": "SAFETY"},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for blocked prompt")
	}
	if !strings.Contains(err.Error(), "prompt blocked: SAFETY") {
		t.Fatalf("expected block reason in error, got %v", err)
	}
}

func TestCompleteRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
		})
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected remote call marker, got %v", err)
	}
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status error 429 in chain, got %v", err)
	}
}

func TestCompleteForbiddenIsConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 403, "message": "permission denied", "status": "PERMISSION_DENIED"},
		})
	}))
	defer server.Close()

	client := New(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestCompleteMissingAPIKey(t *testing.T) {
	client := New(Config{BaseURL: "http://127.0.0.1:0", Model: "demo"})
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateReply("OK"))
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if client.Name() != "gemini" {
		t.Fatalf("unexpected backend name %q", client.Name())
	}
}

func TestHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}
