package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	"sentimark/internal/classify"
	"sentimark/internal/services"
)

func messageReply(text string) map[string]any {
	return map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-3-5-haiku-20241022",
		"content":       []any{map[string]any{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
	}
}

func TestCompleteSendsPromptVerbatim(t *testing.T) {
	prompt := "Classify the sentiment.\n\nReview: \"Great film.\"\nReturn the JSON now."
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read request: %v", err)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(messageReply(`{"label": "Positive"}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := New(Config{APIKey: "test-key", Model: "demo-model"}, option.WithBaseURL(server.URL))
	completion, err := client.Complete(context.Background(), classify.CompletionRequest{
		Prompt:          prompt,
		Temperature:     0.9,
		MaxOutputTokens: 128,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if captured["model"] != "demo-model" {
		t.Errorf("expected model demo-model, got %v", captured["model"])
	}
	if captured["max_tokens"] != float64(128) {
		t.Errorf("expected max_tokens 128, got %v", captured["max_tokens"])
	}
	if captured["temperature"] != 0.9 {
		t.Errorf("expected temperature 0.9, got %v", captured["temperature"])
	}
	messages, ok := captured["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("expected single message, got %v", captured["messages"])
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "user" {
		t.Errorf("expected user role, got %v", first["role"])
	}
	blocks, _ := first["content"].([]any)
	if len(blocks) != 1 {
		t.Fatalf("expected single content block, got %v", first["content"])
	}
	block, _ := blocks[0].(map[string]any)
	if block["text"] != prompt {
		t.Errorf("prompt was altered in transit:\nsent %q\ngot  %v", prompt, block["text"])
	}

	if completion.Text != `{"label": "Positive"}` {
		t.Errorf("unexpected completion text %q", completion.Text)
	}
	if completion.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("expected model from response, got %q", completion.Model)
	}
	if completion.Latency <= 0 {
		t.Errorf("expected positive latency, got %v", completion.Latency)
	}
}

func TestCompleteJoinsTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := messageReply("")
		payload["content"] = []any{
			map[string]any{"type": "text", "text": `{"label": `},
			map[string]any{"type": "text", "text": `"Neutral"}`},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", Model: "demo"}, option.WithBaseURL(server.URL))
	completion, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if completion.Text != `{"label": "Neutral"}` {
		t.Fatalf("expected joined text blocks, got %q", completion.Text)
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := messageReply("")
		payload["content"] = []any{}
		payload["stop_reason"] = "max_tokens"
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", Model: "demo"}, option.WithBaseURL(server.URL))
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for empty content")
	}
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected remote call marker, got %v", err)
	}
}

func TestCompleteUnauthorizedIsConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	}))
	defer server.Close()

	client := New(Config{APIKey: "bad", Model: "demo"}, option.WithBaseURL(server.URL))
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestCompleteServerErrorIsRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "api_error", "message": "overloaded"},
		})
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", Model: "demo"}, option.WithBaseURL(server.URL))
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected remote call marker, got %v", err)
	}
}

func TestCompleteMissingAPIKey(t *testing.T) {
	client := New(Config{Model: "demo"})
	_, err := client.Complete(context.Background(), classify.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(messageReply("OK"))
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", Model: "demo"}, option.WithBaseURL(server.URL))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if client.Name() != "anthropic" {
		t.Fatalf("unexpected backend name %q", client.Name())
	}
}
