package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sentimark/internal/batch"
	"sentimark/internal/classify"
	"sentimark/internal/config"
)

// Store persists batch run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Summary is a run header without its items, used for history listings.
type Summary struct {
	ID          string
	Source      string
	Mode        classify.Mode
	Temperature float64
	Provider    string
	Model       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Elapsed     time.Duration
	Counts      batch.Counts
	Accuracy    *float64
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the run history database.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.HistoryDB()
	if dbPath == "" {
		return nil, errors.New("run history is disabled")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun persists a finished run and its items in one transaction.
func (s *Store) SaveRun(ctx context.Context, run batch.Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run ID cannot be empty")
	}
	ctx = ensureContext(ctx)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (
                id, source, mode, temperature, provider, model, started_at, finished_at,
                elapsed_ms, total, completed, failed, skipped, cache_hits, positive,
                negative, neutral, accuracy
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			nullableString(run.Source),
			string(run.Mode),
			run.Temperature,
			nullableString(run.Provider),
			nullableString(run.Model),
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.FinishedAt.UTC().Format(time.RFC3339Nano),
			run.Elapsed.Milliseconds(),
			run.Counts.Total,
			run.Counts.Completed,
			run.Counts.Failed,
			run.Counts.Skipped,
			run.Counts.CacheHits,
			run.Counts.Positive,
			run.Counts.Negative,
			run.Counts.Neutral,
			run.Accuracy,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, item := range run.Items {
			evidenceJSON, err := json.Marshal(item.Result.EvidencePhrases)
			if err != nil {
				return fmt.Errorf("marshal evidence: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_items (
                    run_id, item_index, review_id, review_text, state, label, confidence,
                    explanation, evidence_json, model, from_cache, latency_ms, error_message
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID,
				item.Index,
				nullableString(item.ReviewID),
				item.ReviewText,
				string(item.State),
				nullableString(item.Result.Label),
				item.Result.Confidence,
				nullableString(item.Result.Explanation),
				string(evidenceJSON),
				nullableString(item.Model),
				boolToInt(item.FromCache),
				item.Latency.Milliseconds(),
				nullableString(item.Error),
			); err != nil {
				return fmt.Errorf("insert run item %d: %w", item.Index, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run: %w", err)
		}
		return nil
	})
}

const summaryColumns = "id, source, mode, temperature, provider, model, started_at, finished_at, elapsed_ms, total, completed, failed, skipped, cache_hits, positive, negative, neutral, accuracy"

func scanSummary(scanner interface{ Scan(dest ...any) error }) (Summary, error) {
	var (
		summary     Summary
		source      sql.NullString
		mode        string
		provider    sql.NullString
		model       sql.NullString
		startedRaw  string
		finishedRaw string
		elapsedMS   int64
		accuracy    sql.NullFloat64
	)
	if err := scanner.Scan(
		&summary.ID,
		&source,
		&mode,
		&summary.Temperature,
		&provider,
		&model,
		&startedRaw,
		&finishedRaw,
		&elapsedMS,
		&summary.Counts.Total,
		&summary.Counts.Completed,
		&summary.Counts.Failed,
		&summary.Counts.Skipped,
		&summary.Counts.CacheHits,
		&summary.Counts.Positive,
		&summary.Counts.Negative,
		&summary.Counts.Neutral,
		&accuracy,
	); err != nil {
		return Summary{}, err
	}
	summary.Source = source.String
	summary.Mode = classify.Mode(mode)
	summary.Provider = provider.String
	summary.Model = model.String
	summary.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if accuracy.Valid {
		value := accuracy.Float64
		summary.Accuracy = &value
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		summary.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		summary.FinishedAt = finished
	}
	return summary, nil
}

// ListRuns returns run summaries newest first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Summary, error) {
	ctx = ensureContext(ctx)

	query := `SELECT ` + summaryColumns + ` FROM runs ORDER BY started_at DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// GetRun fetches a run with its items by exact ID. It returns nil when no
// run matches.
func (s *Store) GetRun(ctx context.Context, id string) (*batch.Run, error) {
	ctx = ensureContext(ctx)

	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM runs WHERE id = ?`, id)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	run := batch.Run{
		ID:          summary.ID,
		Source:      summary.Source,
		Mode:        summary.Mode,
		Temperature: summary.Temperature,
		Provider:    summary.Provider,
		Model:       summary.Model,
		StartedAt:   summary.StartedAt,
		FinishedAt:  summary.FinishedAt,
		Elapsed:     summary.Elapsed,
		Counts:      summary.Counts,
		Accuracy:    summary.Accuracy,
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_index, review_id, review_text, state, label, confidence, explanation,
                evidence_json, model, from_cache, latency_ms, error_message
         FROM run_items WHERE run_id = ? ORDER BY item_index`, id)
	if err != nil {
		return nil, fmt.Errorf("query run items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item         batch.Item
			reviewID     sql.NullString
			state        string
			label        sql.NullString
			explanation  sql.NullString
			evidenceJSON sql.NullString
			model        sql.NullString
			fromCache    int
			latencyMS    int64
			errorMessage sql.NullString
		)
		if err := rows.Scan(
			&item.Index,
			&reviewID,
			&item.ReviewText,
			&state,
			&label,
			&item.Result.Confidence,
			&explanation,
			&evidenceJSON,
			&model,
			&fromCache,
			&latencyMS,
			&errorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		item.ReviewID = reviewID.String
		item.State = batch.ItemState(state)
		item.Result.Label = label.String
		item.Result.Explanation = explanation.String
		if evidenceJSON.Valid && evidenceJSON.String != "" {
			if err := json.Unmarshal([]byte(evidenceJSON.String), &item.Result.EvidencePhrases); err != nil {
				return nil, fmt.Errorf("parse evidence for item %d: %w", item.Index, err)
			}
		}
		item.Model = model.String
		item.FromCache = fromCache != 0
		item.Latency = time.Duration(latencyMS) * time.Millisecond
		item.Error = errorMessage.String
		run.Items = append(run.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindRun resolves an exact run ID or a unique ID prefix. It returns nil
// when nothing matches and an error when the prefix is ambiguous.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (*batch.Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, errors.New("run ID cannot be empty")
	}
	ctx = ensureContext(ctx)

	if run, err := s.GetRun(ctx, idOrPrefix); err != nil || run != nil {
		return run, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id LIKE ? ORDER BY started_at DESC LIMIT 2`,
		idOrPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return nil, nil
	case 1:
		return s.GetRun(ctx, ids[0])
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous", idOrPrefix)
	}
}

// DeleteRun removes a run and its items by exact ID.
func (s *Store) DeleteRun(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all run history.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
