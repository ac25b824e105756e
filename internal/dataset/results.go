package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sentimark/internal/batch"
	"sentimark/internal/classify"
)

// resultHeader lists the enriched output columns in write order.
var resultHeader = []string{
	"review_id", "review_text", "sentiment",
	"predicted_label", "confidence", "explanation", "evidence_phrases",
	"latency_ms", "status", "error",
}

// WriteResults writes rows and their per-item outcomes side by side as CSV.
// Items pair with rows through their Index field. Evidence phrases join with
// "|"; confidence and latency stay blank on rows that never completed.
func WriteResults(w io.Writer, rows []Row, items []batch.Item) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(resultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(rows) {
			return fmt.Errorf("item index %d out of range for %d rows", item.Index, len(rows))
		}
		row := rows[item.Index]
		record := []string{
			row.ReviewID,
			row.ReviewText,
			row.Sentiment,
			item.Result.Label,
			formatConfidence(item),
			item.Result.Explanation,
			strings.Join(item.Result.EvidencePhrases, "|"),
			formatLatency(item),
			string(item.State),
			item.Error,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row for item %d: %w", item.Index, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteResultsFile writes the enriched CSV to path, replacing any existing
// file.
func WriteResultsFile(path string, rows []Row, items []batch.Item) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	if err := WriteResults(f, rows, items); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatConfidence(item batch.Item) string {
	if item.State != batch.StateCompleted {
		return ""
	}
	return strconv.FormatFloat(item.Result.Confidence, 'f', 2, 64)
}

func formatLatency(item batch.Item) string {
	if item.Latency <= 0 {
		return ""
	}
	return strconv.FormatInt(item.Latency.Milliseconds(), 10)
}

// LabelCounts tallies rows per canonical sentiment label.
type LabelCounts struct {
	Positive int
	Negative int
	Neutral  int
}

// ActualCounts tallies ground-truth labels across rows. Rows without a
// canonical sentiment are left out.
func ActualCounts(rows []Row) LabelCounts {
	var counts LabelCounts
	for _, row := range rows {
		switch row.Sentiment {
		case classify.LabelPositive:
			counts.Positive++
		case classify.LabelNegative:
			counts.Negative++
		case classify.LabelNeutral:
			counts.Neutral++
		}
	}
	return counts
}

// Accuracy returns the fraction of completed items whose predicted label
// matches the paired row's ground truth, compared case-insensitively. It
// returns nil when no completed item has ground truth to grade against.
func Accuracy(rows []Row, items []batch.Item) *float64 {
	var matched, graded int
	for _, item := range items {
		if item.State != batch.StateCompleted {
			continue
		}
		if item.Index < 0 || item.Index >= len(rows) {
			continue
		}
		truth := rows[item.Index].Sentiment
		if truth == "" {
			continue
		}
		graded++
		if strings.EqualFold(truth, item.Result.Label) {
			matched++
		}
	}
	if graded == 0 {
		return nil
	}
	accuracy := float64(matched) / float64(graded)
	return &accuracy
}
