package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sentimark/internal/config"
)

func setTestHome(t *testing.T) string {
	t.Helper()
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SENTIMARK_GEMINI_API_KEY", "")
	return tempHome
}

func TestLoadDefaultsUseEnvKeyAndExpandPaths(t *testing.T) {
	tempHome := setTestHome(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "sentimark")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.ActiveBackend() != "gemini" {
		t.Fatalf("expected gemini backend by default, got %q", cfg.ActiveBackend())
	}
	if cfg.Provider.Gemini.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.Provider.Gemini.APIKey)
	}
	if cfg.Provider.Gemini.Model != "gemini-2.5-flash-lite" {
		t.Fatalf("unexpected default model: %q", cfg.Provider.Gemini.Model)
	}
	if cfg.Provider.Gemini.MaxOutputTokens != 256 {
		t.Fatalf("unexpected max output tokens: %d", cfg.Provider.Gemini.MaxOutputTokens)
	}
	if cfg.Classification.Mode != "strict" {
		t.Fatalf("expected strict mode default, got %q", cfg.Classification.Mode)
	}
	if cfg.Classification.SingleTemperature != 0.9 || cfg.Classification.DatasetTemperature != 0.2 {
		t.Fatalf("unexpected temperature defaults: %v %v", cfg.Classification.SingleTemperature, cfg.Classification.DatasetTemperature)
	}
	if cfg.Pacing.RequestIntervalSeconds != 4.5 {
		t.Fatalf("unexpected pacing default: %v", cfg.Pacing.RequestIntervalSeconds)
	}
	if cfg.CacheFile() != filepath.Join(wantData, "results_cache.json") {
		t.Fatalf("unexpected cache file: %q", cfg.CacheFile())
	}
	if cfg.HistoryDB() != filepath.Join(wantData, "runs.db") {
		t.Fatalf("unexpected history db: %q", cfg.HistoryDB())
	}
}

func TestLoadReadsFileOverrides(t *testing.T) {
	setTestHome(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[provider]",
		`backend = "anthropic"`,
		"[provider.anthropic]",
		`api_key = "sk-test"`,
		`model = "claude-3-5-haiku-latest"`,
		"[classification]",
		`mode = "lenient"`,
		"single_temperature = 0.7",
		"[pacing]",
		"request_interval_seconds = 2.0",
		"[cache]",
		"enabled = true",
		"persist = false",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved existing path %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.ActiveBackend() != "anthropic" {
		t.Fatalf("expected anthropic backend, got %q", cfg.ActiveBackend())
	}
	if cfg.Classification.Mode != "lenient" {
		t.Fatalf("expected lenient mode, got %q", cfg.Classification.Mode)
	}
	if cfg.Classification.SingleTemperature != 0.7 {
		t.Fatalf("expected single temperature override, got %v", cfg.Classification.SingleTemperature)
	}
	if cfg.Classification.DatasetTemperature != 0.2 {
		t.Fatalf("expected dataset temperature default, got %v", cfg.Classification.DatasetTemperature)
	}
	if cfg.Pacing.RequestIntervalSeconds != 2.0 {
		t.Fatalf("expected pacing override, got %v", cfg.Pacing.RequestIntervalSeconds)
	}
	if cfg.CacheFile() != "" {
		t.Fatalf("expected no cache file when persistence disabled, got %q", cfg.CacheFile())
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	setTestHome(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[provider]\nbackend = \"bard\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	} else if !strings.Contains(err.Error(), "provider.backend") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequiresActiveBackendKey(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("SENTIMARK_GEMINI_API_KEY", "")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when gemini key missing")
	}
	if !strings.Contains(err.Error(), "provider.gemini.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	setTestHome(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[classification]\nmode = \"fuzzy\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	setTestHome(t)

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.ActiveBackend() != "gemini" {
		t.Fatalf("expected sample to keep gemini default, got %q", cfg.ActiveBackend())
	}
}

func TestLockFileUnderDataDir(t *testing.T) {
	setTestHome(t)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if filepath.Dir(cfg.LockFile()) != cfg.Paths.DataDir {
		t.Fatalf("lock file %q not under data dir %q", cfg.LockFile(), cfg.Paths.DataDir)
	}
}
