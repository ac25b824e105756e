package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func extractRunID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Run ID: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Run ID: "))
		}
	}
	t.Fatalf("no run ID in output: %q", out)
	return ""
}

func TestRunsLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeDatasetFile(t, env.baseDir, "reviews.csv", accuracyDataset)

	batchOut, _, err := runCLI(t, []string{"batch", input}, env.configPath)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	runID := extractRunID(t, batchOut)

	out, _, err := runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	requireContains(t, out, shortID(runID))
	requireContains(t, out, "reviews.csv")
	requireContains(t, out, "66.7%")

	out, _, err = runCLI(t, []string{"runs", "show", shortID(runID)}, env.configPath)
	if err != nil {
		t.Fatalf("runs show failed: %v", err)
	}
	requireContains(t, out, "Run "+runID)
	requireContains(t, out, "Completed: 3 of 3")
	requireContains(t, out, "r2")
	requireContains(t, out, "Negative")

	out, _, err = runCLI(t, []string{"runs", "show", "--json", runID}, env.configPath)
	if err != nil {
		t.Fatalf("runs show --json failed: %v", err)
	}
	var decoded struct {
		ID    string `json:"id"`
		Items []struct {
			ReviewID string `json:"review_id"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("failed to parse run JSON: %v\noutput: %s", err, out)
	}
	if decoded.ID != runID {
		t.Fatalf("expected run %s, got %s", runID, decoded.ID)
	}
	if len(decoded.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(decoded.Items))
	}

	out, _, err = runCLI(t, []string{"runs", "delete", runID}, env.configPath)
	if err != nil {
		t.Fatalf("runs delete failed: %v", err)
	}
	requireContains(t, out, "Deleted run "+runID)

	out, _, err = runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list after delete failed: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestRunsShowUnknownID(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeDatasetFile(t, env.baseDir, "reviews.csv", accuracyDataset)
	if _, _, err := runCLI(t, []string{"batch", input}, env.configPath); err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	_, _, err := runCLI(t, []string{"runs", "show", "zzzzzz"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRunsClearRemovesEverything(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeDatasetFile(t, env.baseDir, "reviews.csv", accuracyDataset)
	for i := 0; i < 2; i++ {
		if _, _, err := runCLI(t, []string{"batch", input}, env.configPath); err != nil {
			t.Fatalf("batch %d failed: %v", i+1, err)
		}
	}

	out, _, err := runCLI(t, []string{"runs", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("runs clear failed: %v", err)
	}
	requireContains(t, out, "Removed 2 runs")
}

func TestRunsListWarnsWhenHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	appendToConfig(t, env.configPath, "\n[history]\nenabled = false\n")

	out, _, err := runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	requireContains(t, out, "Run history is disabled")
}
