// Package store keeps the render ledger of a run in a SQLite file inside
// the run directory. Every render job moves queued -> rendering ->
// complete|failed and each transition is written through.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 2

// FileName is the ledger file created in a run directory.
const FileName = "ledger.db"

var (
	ErrSchemaMismatch = errors.New("schema version mismatch")
	ErrUnknownJob     = errors.New("unknown job")
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRendering Status = "rendering"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

const (
	RunRunning  Status = "running"
	RunComplete Status = "complete"
	RunFailed   Status = "failed"
)

// Run is one row of the runs table.
type Run struct {
	RunID      string
	Input      string
	SourcePath string
	Status     Status
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
}

type Job struct {
	RunID       string
	Name        string
	Kind        string
	Seq         int
	Title       string
	StartSec    float64
	EndSec      float64
	DurationSec float64
	Parts       int
	Status      Status
	OutputPath  string
	Error       string
	Attempts    int
	UpdatedAt   time.Time
}

type Ledger struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Render workers write concurrently; one connection serializes them.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	l := &Ledger{db: db, path: path}
	if err := l.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) initSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var version int
	err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: ledger has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return tx.Commit()
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (l *Ledger) StartRun(ctx context.Context, runID, input, sourcePath string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, input, source_path, created_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(run_id) DO UPDATE SET source_path = excluded.source_path`,
		runID, input, nullableString(sourcePath), now(),
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stamps the run as finished. A non-nil cause marks it failed.
func (l *Ledger) FinishRun(ctx context.Context, runID string, cause error) error {
	status, msg := RunComplete, any(nil)
	if cause != nil {
		status, msg = RunFailed, cause.Error()
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error_message = ? WHERE run_id = ?`,
		now(), string(status), msg, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// GetRun returns the stored state of a run.
func (l *Ledger) GetRun(ctx context.Context, runID string) (Run, error) {
	var (
		r                 Run
		status            string
		created, finished string
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT run_id, input, COALESCE(source_path, ''), status, COALESCE(error_message, ''),
                created_at, COALESCE(finished_at, '')
         FROM runs WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &r.Input, &r.SourcePath, &status, &r.Error, &created, &finished)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	r.Status = Status(status)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	if finished != "" {
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	}
	return r, nil
}

// RecordJob inserts a queued job. Recording the same job again resets it to queued.
func (l *Ledger) RecordJob(ctx context.Context, j Job) error {
	ts := now()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO jobs (
            run_id, name, kind, seq, title, start_sec, end_sec, duration_sec, parts,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, name) DO UPDATE SET
            status = excluded.status, output_path = NULL, error_message = NULL,
            updated_at = excluded.updated_at`,
		j.RunID, j.Name, j.Kind, j.Seq, nullableString(j.Title),
		j.StartSec, j.EndSec, j.DurationSec, max(j.Parts, 1),
		string(StatusQueued), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", j.Name, err)
	}
	return nil
}

func (l *Ledger) MarkRendering(ctx context.Context, runID, name string) error {
	return l.transition(ctx,
		`UPDATE jobs SET status = ?, attempts = attempts + 1, updated_at = ? WHERE run_id = ? AND name = ?`,
		name, string(StatusRendering), now(), runID, name)
}

func (l *Ledger) MarkComplete(ctx context.Context, runID, name, outputPath string) error {
	return l.transition(ctx,
		`UPDATE jobs SET status = ?, output_path = ?, error_message = NULL, updated_at = ? WHERE run_id = ? AND name = ?`,
		name, string(StatusComplete), outputPath, now(), runID, name)
}

func (l *Ledger) MarkFailed(ctx context.Context, runID, name string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return l.transition(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, output_path = NULL, updated_at = ? WHERE run_id = ? AND name = ?`,
		name, string(StatusFailed), msg, now(), runID, name)
}

func (l *Ledger) transition(ctx context.Context, query, name string, args ...any) error {
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return nil
}

// Jobs lists the jobs of a run in planning order.
func (l *Ledger) Jobs(ctx context.Context, runID string) ([]Job, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, name, kind, seq, COALESCE(title, ''), start_sec, end_sec, duration_sec, parts,
                status, COALESCE(output_path, ''), COALESCE(error_message, ''), attempts, updated_at
         FROM jobs WHERE run_id = ? ORDER BY seq, name`, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var (
			j       Job
			status  string
			updated string
		)
		if err := rows.Scan(&j.RunID, &j.Name, &j.Kind, &j.Seq, &j.Title, &j.StartSec, &j.EndSec, &j.DurationSec,
			&j.Parts, &status, &j.OutputPath, &j.Error, &j.Attempts, &updated); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Status = Status(status)
		if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			j.UpdatedAt = ts
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
