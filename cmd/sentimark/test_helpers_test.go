package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type cliTestEnv struct {
	model      *fakeModel
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	model := newFakeModel(t)
	configPath := writeTestConfig(t, base, model.URL, "test-key")
	return &cliTestEnv{
		model:      model,
		baseDir:    base,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig points the gemini backend at the fake model server. The
// pacing interval is near zero so batch tests finish quickly; a literal zero
// would be replaced by the production default.
func writeTestConfig(t *testing.T, dir, serverURL, apiKey string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[provider]
backend = "gemini"

[provider.gemini]
api_key = %q
base_url = %q
model = "fake-model"

[classification]
mode = "strict"

[pacing]
request_interval_seconds = 0.01

[logging]
level = "debug"
format = "console"
`, filepath.Join(dir, "data"), filepath.Join(dir, "logs"), apiKey, serverURL)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func appendToConfig(t *testing.T, path, extra string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(extra); err != nil {
		t.Fatalf("append config: %v", err)
	}
}

// accuracyDataset mixes two correctly labeled rows with one mislabeled row,
// so a full run grades at two out of three.
const accuracyDataset = `review_id,review_text,sentiment
r1,An absolute masterpiece from start to finish.,positive
r2,"Dreadful from start to finish, I want my money back.",negative
r3,"Entirely forgettable, neither good nor bad.",positive
`

func writeDatasetFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

// fakeModel serves the generateContent wire shape. The verdict keys off
// marker words in the prompt, so tests control each review's label through
// the review text itself.
type fakeModel struct {
	*httptest.Server

	mu    sync.Mutex
	calls int
}

func newFakeModel(t *testing.T) *fakeModel {
	t.Helper()
	f := &fakeModel{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeModel) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeModel) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("x-goog-api-key") != "test-key" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"code": 401, "message": "API key not valid", "status": "UNAUTHENTICATED"}}`)
		return
	}

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var prompt strings.Builder
	for _, content := range req.Contents {
		for _, part := range content.Parts {
			prompt.WriteString(part.Text)
		}
	}

	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]string{{"text": replyFor(prompt.String())}},
				},
				"finishReason": "STOP",
			},
		},
		"modelVersion": "fake-model",
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// replyFor picks the canned verdict. The markers are words that appear
// nowhere in the prompt scaffold or the built-in exemplars, so only the
// review under test can trigger them.
func replyFor(prompt string) string {
	if strings.Contains(prompt, "Reply with the single word OK.") {
		return "OK"
	}
	lowered := strings.ToLower(prompt)
	label := "Positive"
	switch {
	case strings.Contains(lowered, "dreadful"):
		label = "Negative"
	case strings.Contains(lowered, "forgettable"):
		label = "Neutral"
	}
	return fmt.Sprintf(`{"label": %q, "confidence": 0.91, "explanation": "The wording is unambiguous.", "evidence_phrases": ["tone"]}`, label)
}
