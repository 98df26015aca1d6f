// Package runs persists pipeline run bookkeeping: one row per preprocess,
// train or predict invocation, plus per-sample outcomes for prediction runs.
package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clearvoice/internal/config"
)

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the runs database under the log directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "runs.db")
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

// Path reports the database file location.
func (s *Store) Path() string { return s.path }

const runColumns = `id, correlation_id, kind, root, status, error_message, created_at, updated_at`

// NewRun inserts a run in the running state and returns it.
func (s *Store) NewRun(ctx context.Context, kind Kind, root string) (*Run, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	correlationID := uuid.NewString()

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (correlation_id, kind, root, status, error_message, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		correlationID,
		string(kind),
		root,
		string(StatusRunning),
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRun(ctx, id)
}

// UpdateRunStatus transitions a run and records an optional error message.
func (s *Store) UpdateRunStatus(ctx context.Context, id int64, status Status, errorMessage string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status),
		nullableString(errorMessage),
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

// GetRun fetches a run by identifier. Missing runs return nil.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

const sampleColumns = `id, run_id, speaker, video_path, speech_path, noise_path, status, error_message, loss, output_dir, created_at`

// RecordSample inserts one per-sample outcome for a run.
func (s *Store) RecordSample(ctx context.Context, runID int64, record SampleRecord) (*SampleRecord, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	var loss sql.NullFloat64
	if record.Loss != nil {
		loss = sql.NullFloat64{Float64: *record.Loss, Valid: true}
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_samples (run_id, speaker, video_path, speech_path, noise_path, status, error_message, loss, output_dir, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		record.Speaker,
		record.VideoPath,
		record.SpeechPath,
		record.NoisePath,
		string(record.Status),
		nullableString(record.ErrorMessage),
		loss,
		nullableString(record.OutputDir),
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sample record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM run_samples WHERE id = ?`, id)
	sample, err := scanSample(row)
	if err != nil {
		return nil, fmt.Errorf("get sample record: %w", err)
	}
	return sample, nil
}

// SamplesForRun returns a run's sample outcomes in insertion order.
func (s *Store) SamplesForRun(ctx context.Context, runID int64) ([]*SampleRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sampleColumns+` FROM run_samples WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list sample records: %w", err)
	}
	defer rows.Close()

	var out []*SampleRecord
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample record: %w", err)
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var errorMessage sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(
		&run.ID,
		&run.CorrelationID,
		(*string)(&run.Kind),
		&run.Root,
		(*string)(&run.Status),
		&errorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.ErrorMessage = errorMessage.String
	run.CreatedAt = parseTimestamp(createdAt)
	run.UpdatedAt = parseTimestamp(updatedAt)
	return &run, nil
}

func scanSample(row rowScanner) (*SampleRecord, error) {
	var sample SampleRecord
	var errorMessage, outputDir sql.NullString
	var loss sql.NullFloat64
	var createdAt string
	err := row.Scan(
		&sample.ID,
		&sample.RunID,
		&sample.Speaker,
		&sample.VideoPath,
		&sample.SpeechPath,
		&sample.NoisePath,
		(*string)(&sample.Status),
		&errorMessage,
		&loss,
		&outputDir,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	sample.ErrorMessage = errorMessage.String
	sample.OutputDir = outputDir.String
	if loss.Valid {
		v := loss.Float64
		sample.Loss = &v
	}
	sample.CreatedAt = parseTimestamp(createdAt)
	return &sample, nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
