package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Provider selects the completion backend and holds per-backend settings.
type Provider struct {
	Backend   string            `toml:"backend"`
	Gemini    GeminiProvider    `toml:"gemini"`
	OpenAI    OpenAIProvider    `toml:"openai"`
	Anthropic AnthropicProvider `toml:"anthropic"`
}

// GeminiProvider configures the Generative Language API backend.
type GeminiProvider struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxOutputTokens int    `toml:"max_output_tokens"`
}

// OpenAIProvider configures any OpenAI-compatible chat completions backend.
type OpenAIProvider struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxOutputTokens int    `toml:"max_output_tokens"`
}

// AnthropicProvider configures the Anthropic Messages API backend.
type AnthropicProvider struct {
	APIKey          string `toml:"api_key"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxOutputTokens int    `toml:"max_output_tokens"`
}

// Classification contains prompt mode and temperature defaults.
type Classification struct {
	Mode               string  `toml:"mode"`
	SingleTemperature  float64 `toml:"single_temperature"`
	DatasetTemperature float64 `toml:"dataset_temperature"`
	ExemplarsFile      string  `toml:"exemplars_file"`
}

// Pacing contains the inter-call spacing applied to remote calls.
type Pacing struct {
	RequestIntervalSeconds float64 `toml:"request_interval_seconds"`
}

// Cache contains result cache settings.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Persist bool   `toml:"persist"`
	Path    string `toml:"path"`
}

// History contains batch run history settings.
type History struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	ListLimit int    `toml:"list_limit"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sentimark.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Provider: completion backend selection plus per-backend connection settings
//   - Classification: strict/lenient mode and temperature defaults
//   - Pacing: inter-call spacing for the shared rate-limit budget
//   - Cache: result cache persistence
//   - History: batch run history database
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths          Paths          `toml:"paths"`
	Provider       Provider       `toml:"provider"`
	Classification Classification `toml:"classification"`
	Pacing         Pacing         `toml:"pacing"`
	Cache          Cache          `toml:"cache"`
	History        History        `toml:"history"`
	Notifications  Notifications  `toml:"notifications"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sentimark/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sentimark.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ActiveBackend returns the normalized provider backend name.
func (c *Config) ActiveBackend() string {
	return strings.ToLower(strings.TrimSpace(c.Provider.Backend))
}

// CacheFile returns the result cache path, or "" when persistence is disabled.
func (c *Config) CacheFile() string {
	if !c.Cache.Enabled || !c.Cache.Persist {
		return ""
	}
	return c.Cache.Path
}

// HistoryDB returns the batch history database path, or "" when disabled.
func (c *Config) HistoryDB() string {
	if !c.History.Enabled {
		return ""
	}
	return c.History.Path
}

// LockFile returns the path of the lock guarding concurrent batch runs.
func (c *Config) LockFile() string {
	return filepath.Join(c.Paths.DataDir, "sentimark.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
