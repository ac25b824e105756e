package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sentimark/internal/classify"
	"sentimark/internal/config"
)

const stampLayout = "2006-01-02 15:04"

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 3 || len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func formatAccuracy(value *float64) string {
	if value == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *value*100)
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(stampLayout)
}

// resolveMode maps the flag value, falling back to the configured default
// when the flag is empty.
func resolveMode(cfg *config.Config, flagValue string) (classify.Mode, error) {
	if strings.TrimSpace(flagValue) == "" {
		return classify.ParseMode(cfg.Classification.Mode)
	}
	return classify.ParseMode(flagValue)
}

// resolveTemperature prefers an explicitly set flag over the config default.
func resolveTemperature(cmd *cobra.Command, flagValue, fallback float64) float64 {
	if cmd.Flags().Changed("temperature") {
		return flagValue
	}
	return fallback
}

func pacingInterval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Pacing.RequestIntervalSeconds * float64(time.Second))
}

// derivedPath builds an output path next to the input by appending a suffix
// before the extension.
func derivedPath(input, suffix string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		return input + suffix + ".csv"
	}
	return strings.TrimSuffix(input, ext) + suffix + ext
}
