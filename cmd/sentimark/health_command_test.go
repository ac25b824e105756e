package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestHealthAllChecksPass(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"health"}, env.configPath)
	if err != nil {
		t.Fatalf("health failed: %v\noutput: %s", err, out)
	}
	requireContains(t, out, "Data directory:")
	requireContains(t, out, "Log directory:")
	requireContains(t, out, "read/write ok")
	requireContains(t, out, "Provider (gemini):")
	requireContains(t, out, "[OK] API reachable")
}

func TestHealthReportsRejectedCredentials(t *testing.T) {
	base := t.TempDir()
	model := newFakeModel(t)
	configPath := writeTestConfig(t, base, model.URL, "bad-key")

	out, _, err := runCLI(t, []string{"health"}, configPath)
	if err == nil {
		t.Fatalf("expected health to fail, output: %s", out)
	}
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "credentials rejected")
}

func TestHealthReportsBrokenConfig(t *testing.T) {
	t.Setenv("SENTIMARK_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n\n[provider]\nbackend = \"gemini\"\n",
		filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"health"}, configPath)
	if err == nil {
		t.Fatalf("expected health to fail, output: %s", out)
	}
	requireContains(t, out, "Configuration:")
	requireContains(t, out, "api_key is required")
}
