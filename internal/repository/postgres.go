package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS hvac_jobs (
	id             UUID PRIMARY KEY,
	status         TEXT NOT NULL,
	step           TEXT NOT NULL DEFAULT '',
	filename       TEXT NOT NULL DEFAULT '',
	pdf_path       TEXT NOT NULL DEFAULT '',
	template_path  TEXT NOT NULL DEFAULT '',
	result_file    TEXT NOT NULL DEFAULT '',
	data_file      TEXT NOT NULL DEFAULT '',
	populated_file TEXT NOT NULL DEFAULT '',
	counts         JSONB,
	error          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ
)`

// PostgresJobs stores jobs in PostgreSQL through a pgx pool. Close releases
// the pool.
type PostgresJobs struct {
	pool *pgxpool.Pool
	log  *slog.Logger
	now  func() time.Time
}

// NewPostgresJobs applies the schema and returns the store.
func NewPostgresJobs(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresJobs, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, common.DatabaseError("migrate", err)
	}
	return &PostgresJobs{pool: pool, log: logger, now: time.Now}, nil
}

func (r *PostgresJobs) Create(ctx context.Context, job Job) (*Job, error) {
	j := newJob(job, r.now().UTC())
	_, err := r.pool.Exec(ctx,
		`INSERT INTO hvac_jobs (`+jobColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		j.ID, string(j.Status), j.Step, j.Filename, j.PDFPath, j.TemplatePath,
		j.ResultFile, j.DataFile, j.PopulatedFile, j.Counts, j.Error,
		j.CreatedAt, j.UpdatedAt, j.FinishedAt,
	)
	if err != nil {
		r.log.Error("store.job.create_failed", "job_id", j.ID, "error", err)
		return nil, common.DatabaseError("create job", err)
	}
	r.log.Info("store.job.created", "job_id", j.ID, "filename", j.Filename)
	return &j, nil
}

func (r *PostgresJobs) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	var (
		j      Job
		status string
	)
	err := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM hvac_jobs WHERE id = $1`, id).Scan(
		&j.ID, &status, &j.Step, &j.Filename, &j.PDFPath, &j.TemplatePath,
		&j.ResultFile, &j.DataFile, &j.PopulatedFile, &j.Counts, &j.Error,
		&j.CreatedAt, &j.UpdatedAt, &j.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, common.DatabaseError("get job", err)
	}
	j.Status = JobStatus(status)
	return &j, nil
}

func (r *PostgresJobs) UpdateStep(ctx context.Context, id uuid.UUID, step string) error {
	return r.exec(ctx, id, `UPDATE hvac_jobs SET status = $2, step = $3, updated_at = $4 WHERE id = $1`,
		id, string(StatusProcessing), step, r.now().UTC())
}

func (r *PostgresJobs) Complete(ctx context.Context, id uuid.UUID, result JobResult) error {
	now := r.now().UTC()
	err := r.exec(ctx, id, `UPDATE hvac_jobs SET status = $2, step = $3, result_file = $4, data_file = $5,
		populated_file = $6, counts = $7, updated_at = $8, finished_at = $8 WHERE id = $1`,
		id, string(StatusCompleted), StepDone, result.ResultFile, result.DataFile,
		result.PopulatedFile, result.Counts, now)
	if err == nil {
		r.log.Info("store.job.completed", "job_id", id, "result_file", result.ResultFile)
	}
	return err
}

func (r *PostgresJobs) Fail(ctx context.Context, id uuid.UUID, message string) error {
	now := r.now().UTC()
	err := r.exec(ctx, id, `UPDATE hvac_jobs SET status = $2, error = $3, updated_at = $4, finished_at = $4 WHERE id = $1`,
		id, string(StatusFailed), message, now)
	if err == nil {
		r.log.Warn("store.job.failed", "job_id", id, "error", message)
	}
	return err
}

func (r *PostgresJobs) Ping(ctx context.Context) error {
	return HealthCheck(ctx, r.pool, 3*time.Second)
}

func (r *PostgresJobs) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresJobs) exec(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("store.job.update_failed", "job_id", id, "error", err)
		return common.DatabaseError("update job", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}
