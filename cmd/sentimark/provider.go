package main

import (
	"context"
	"fmt"
	"log/slog"

	"sentimark/internal/analyzer"
	"sentimark/internal/config"
	"sentimark/internal/services/anthropic"
	"sentimark/internal/services/gemini"
	"sentimark/internal/services/openaicompat"
)

// provider is the backend surface the CLI wires into the analyzer and the
// preflight checks.
type provider interface {
	analyzer.Completer
	HealthCheck(ctx context.Context) error
}

// newProvider builds the configured completion backend.
func newProvider(cfg *config.Config, logger *slog.Logger) (provider, error) {
	return buildProvider(cfg, logger, false)
}

// newHealthProvider builds the backend with retries disabled so a failing
// endpoint reports quickly.
func newHealthProvider(cfg *config.Config, logger *slog.Logger) (provider, error) {
	return buildProvider(cfg, logger, true)
}

func buildProvider(cfg *config.Config, logger *slog.Logger, singleAttempt bool) (provider, error) {
	switch backend := cfg.ActiveBackend(); backend {
	case "gemini":
		settings := cfg.Provider.Gemini
		return gemini.New(gemini.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.BaseURL,
			Model:          settings.Model,
			TimeoutSeconds: settings.TimeoutSeconds,
		}), nil
	case "openai":
		settings := cfg.Provider.OpenAI
		opts := []openaicompat.Option{openaicompat.WithLogger(logger)}
		if singleAttempt {
			opts = append(opts, openaicompat.WithRetryMaxAttempts(1))
		}
		return openaicompat.New(openaicompat.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.BaseURL,
			Model:          settings.Model,
			TimeoutSeconds: settings.TimeoutSeconds,
		}, opts...), nil
	case "anthropic":
		settings := cfg.Provider.Anthropic
		return anthropic.New(anthropic.Config{
			APIKey:         settings.APIKey,
			Model:          settings.Model,
			TimeoutSeconds: settings.TimeoutSeconds,
		}), nil
	default:
		return nil, fmt.Errorf("provider backend %q is not supported", backend)
	}
}

func activeModel(cfg *config.Config) string {
	switch cfg.ActiveBackend() {
	case "gemini":
		return cfg.Provider.Gemini.Model
	case "openai":
		return cfg.Provider.OpenAI.Model
	case "anthropic":
		return cfg.Provider.Anthropic.Model
	default:
		return ""
	}
}

func maxOutputTokens(cfg *config.Config) int {
	switch cfg.ActiveBackend() {
	case "gemini":
		return cfg.Provider.Gemini.MaxOutputTokens
	case "openai":
		return cfg.Provider.OpenAI.MaxOutputTokens
	case "anthropic":
		return cfg.Provider.Anthropic.MaxOutputTokens
	default:
		return 0
	}
}
