package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sentimark/internal/batch"
	"sentimark/internal/classify"
	"sentimark/internal/services"
)

// Row is one review loaded from an input CSV. Sentiment holds the optional
// ground-truth label, canonicalized when it maps to one of the known labels
// and kept as the trimmed original otherwise.
type Row struct {
	ReviewID   string
	ReviewText string
	Sentiment  string
}

// ReadFile loads reviews from a CSV file.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses reviews from CSV data. Columns map by header name, so order
// does not matter. review_text is required and must be non-empty on every
// row; review_id falls back to the 1-based row number when the column is
// missing; sentiment is optional ground truth.
func Read(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrValidation, "dataset", "read", "empty file", nil)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := indexColumns(headers)
	textCol, ok := index["review_text"]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "dataset", "read", "missing required column review_text", nil)
	}
	idCol, hasID := index["review_id"]
	sentimentCol, hasSentiment := index["sentiment"]

	var rows []Row
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		if len(record) == 0 {
			continue
		}
		row := Row{ReviewText: strings.TrimSpace(getField(record, textCol))}
		if hasID {
			row.ReviewID = strings.TrimSpace(getField(record, idCol))
		}
		if row.ReviewID == "" {
			row.ReviewID = strconv.Itoa(len(rows) + 1)
		}
		if row.ReviewText == "" {
			return nil, services.Wrap(services.ErrValidation, "dataset", "read",
				fmt.Sprintf("row %d (review_id=%s): empty review_text", len(rows)+2, row.ReviewID), nil)
		}
		if hasSentiment {
			if raw := strings.TrimSpace(getField(record, sentimentCol)); raw != "" {
				if label, err := classify.NormalizeLabel(raw); err == nil {
					row.Sentiment = label
				} else {
					row.Sentiment = raw
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Inputs converts rows into scheduler inputs, preserving order.
func Inputs(rows []Row) []batch.Input {
	inputs := make([]batch.Input, len(rows))
	for i, row := range rows {
		inputs[i] = batch.Input{ReviewID: row.ReviewID, ReviewText: row.ReviewText}
	}
	return inputs
}

// datasetHeader lists the plain dataset columns in write order.
var datasetHeader = []string{"review_id", "review_text", "sentiment"}

// WriteRows writes rows as a plain three-column dataset CSV, the same layout
// Read accepts.
func WriteRows(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(datasetHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write([]string{row.ReviewID, row.ReviewText, row.Sentiment}); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRowsFile writes the dataset CSV to path, replacing any existing file.
func WriteRowsFile(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	if err := WriteRows(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func indexColumns(headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, header := range headers {
		name := strings.TrimSpace(header)
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		index[strings.ToLower(name)] = i
	}
	return index
}

func getField(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
