package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS hvac_jobs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	step           TEXT NOT NULL DEFAULT '',
	filename       TEXT NOT NULL DEFAULT '',
	pdf_path       TEXT NOT NULL DEFAULT '',
	template_path  TEXT NOT NULL DEFAULT '',
	result_file    TEXT NOT NULL DEFAULT '',
	data_file      TEXT NOT NULL DEFAULT '',
	populated_file TEXT NOT NULL DEFAULT '',
	counts         TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	finished_at    TEXT NOT NULL DEFAULT ''
)`

const jobColumns = `id, status, step, filename, pdf_path, template_path, result_file, data_file,
	populated_file, counts, error, created_at, updated_at, finished_at`

// SQLiteJobs stores jobs in a local SQLite file through database/sql.
type SQLiteJobs struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteJobs, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, common.ConfigurationError("store.dsn is required for the sqlite driver", nil)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and writes serialized
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("store.sqlite.opened", "path", path)
	return &SQLiteJobs{db: db, log: logger, now: time.Now}, nil
}

func (r *SQLiteJobs) Create(ctx context.Context, job Job) (*Job, error) {
	j := newJob(job, r.now().UTC())
	counts, err := encodeCounts(j.Counts)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO hvac_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID.String(), string(j.Status), j.Step, j.Filename, j.PDFPath, j.TemplatePath,
		j.ResultFile, j.DataFile, j.PopulatedFile, counts, j.Error,
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt), "",
	)
	if err != nil {
		r.log.Error("store.job.create_failed", "job_id", j.ID, "error", err)
		return nil, common.DatabaseError("create job", err)
	}
	r.log.Info("store.job.created", "job_id", j.ID, "filename", j.Filename)
	return &j, nil
}

func (r *SQLiteJobs) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM hvac_jobs WHERE id = ?`, id.String())

	var (
		j                                Job
		rawID, status, counts            string
		createdAt, updatedAt, finishedAt string
	)
	err := row.Scan(&rawID, &status, &j.Step, &j.Filename, &j.PDFPath, &j.TemplatePath,
		&j.ResultFile, &j.DataFile, &j.PopulatedFile, &counts, &j.Error,
		&createdAt, &updatedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, common.DatabaseError("get job", err)
	}

	if j.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("job id %q: %w", rawID, err)
	}
	j.Status = JobStatus(status)
	if j.Counts, err = decodeCounts(counts); err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if finishedAt != "" {
		t, err := parseTime(finishedAt)
		if err != nil {
			return nil, err
		}
		j.FinishedAt = &t
	}
	return &j, nil
}

func (r *SQLiteJobs) UpdateStep(ctx context.Context, id uuid.UUID, step string) error {
	return r.exec(ctx, id, `UPDATE hvac_jobs SET status = ?, step = ?, updated_at = ? WHERE id = ?`,
		string(StatusProcessing), step, formatTime(r.now().UTC()), id.String())
}

func (r *SQLiteJobs) Complete(ctx context.Context, id uuid.UUID, result JobResult) error {
	counts, err := encodeCounts(result.Counts)
	if err != nil {
		return err
	}
	now := formatTime(r.now().UTC())
	err = r.exec(ctx, id, `UPDATE hvac_jobs SET status = ?, step = ?, result_file = ?, data_file = ?,
		populated_file = ?, counts = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		string(StatusCompleted), StepDone, result.ResultFile, result.DataFile,
		result.PopulatedFile, counts, now, now, id.String())
	if err == nil {
		r.log.Info("store.job.completed", "job_id", id, "result_file", result.ResultFile)
	}
	return err
}

func (r *SQLiteJobs) Fail(ctx context.Context, id uuid.UUID, message string) error {
	now := formatTime(r.now().UTC())
	err := r.exec(ctx, id, `UPDATE hvac_jobs SET status = ?, error = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		string(StatusFailed), message, now, now, id.String())
	if err == nil {
		r.log.Warn("store.job.failed", "job_id", id, "error", message)
	}
	return err
}

func (r *SQLiteJobs) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteJobs) Close() error {
	return r.db.Close()
}

func (r *SQLiteJobs) exec(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("store.job.update_failed", "job_id", id, "error", err)
		return common.DatabaseError("update job", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.DatabaseError("update job", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func encodeCounts(m map[string]int) (string, error) {
	if m == nil {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode counts: %w", err)
	}
	return string(b), nil
}

func decodeCounts(s string) (map[string]int, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]int
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
