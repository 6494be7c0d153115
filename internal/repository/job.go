package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Steps reported while a job is processing.
const (
	StepExtracting = "extracting_data"
	StepPopulating = "populating_template"
	StepReporting  = "generating_report"
	StepDone       = "done"
)

// Job tracks one uploaded drawing set through extraction and export.
// File names are relative to the output directory.
type Job struct {
	ID            uuid.UUID      `json:"id"`
	Status        JobStatus      `json:"status"`
	Step          string         `json:"step,omitempty"`
	Filename      string         `json:"filename"`
	PDFPath       string         `json:"-"`
	TemplatePath  string         `json:"-"`
	ResultFile    string         `json:"result_file,omitempty"`
	DataFile      string         `json:"data_file,omitempty"`
	PopulatedFile string         `json:"populated_file,omitempty"`
	Counts        map[string]int `json:"counts,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
}

// JobResult is recorded when a job completes.
type JobResult struct {
	ResultFile    string
	DataFile      string
	PopulatedFile string
	Counts        map[string]int
}

// JobRepository persists job state. Updates on an unknown id return a
// common.NotFoundError.
type JobRepository interface {
	// Create stores a queued job. A nil ID is replaced with a new one.
	Create(ctx context.Context, job Job) (*Job, error)
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	// UpdateStep moves the job to processing and records the current step.
	UpdateStep(ctx context.Context, id uuid.UUID, step string) error
	Complete(ctx context.Context, id uuid.UUID, result JobResult) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
	Close() error
}

// Pinger is implemented by stores backed by a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

func newJob(job Job, now time.Time) Job {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = StatusQueued
	job.Step = ""
	job.CreatedAt = now
	job.UpdatedAt = now
	job.FinishedAt = nil
	return job
}

func copyCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func notFound(id uuid.UUID) error {
	return common.NotFoundError("job " + id.String())
}
