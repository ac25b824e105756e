package testsupport

import (
	"path/filepath"
	"testing"

	"sentimark/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Provider.Gemini.APIKey = "test"
	cfg.Cache.Path = filepath.Join(base, "data", "results.json")
	cfg.History.Path = filepath.Join(base, "data", "history.db")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithBackend switches the active provider backend on the test config.
func WithBackend(backend string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Provider.Backend = backend
	}
}

// WithMode sets the classification mode on the test config.
func WithMode(mode string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Classification.Mode = mode
	}
}

// WithoutHistory disables the run history database.
func WithoutHistory() ConfigOption {
	return func(cfg *config.Config) {
		cfg.History.Enabled = false
	}
}
