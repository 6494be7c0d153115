package repository

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

// MemoryJobs keeps jobs in process memory. Jobs are lost on restart.
type MemoryJobs struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	now  func() time.Time
	log  *slog.Logger
}

func NewMemoryJobs(logger *slog.Logger) *MemoryJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryJobs{jobs: make(map[uuid.UUID]*Job), now: time.Now, log: logger}
}

func (r *MemoryJobs) Create(_ context.Context, job Job) (*Job, error) {
	j := newJob(job, r.now().UTC())
	j.Counts = copyCounts(j.Counts)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; ok {
		return nil, common.ConflictError("job " + j.ID.String() + " already exists")
	}
	r.jobs[j.ID] = &j
	r.log.Info("store.job.created", "job_id", j.ID, "filename", j.Filename)
	out := j
	return &out, nil
}

func (r *MemoryJobs) Get(_ context.Context, id uuid.UUID) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	out := *j
	out.Counts = copyCounts(j.Counts)
	return &out, nil
}

func (r *MemoryJobs) UpdateStep(_ context.Context, id uuid.UUID, step string) error {
	return r.update(id, func(j *Job) {
		j.Status = StatusProcessing
		j.Step = step
	})
}

func (r *MemoryJobs) Complete(_ context.Context, id uuid.UUID, result JobResult) error {
	err := r.update(id, func(j *Job) {
		now := j.UpdatedAt
		j.Status = StatusCompleted
		j.Step = StepDone
		j.ResultFile = result.ResultFile
		j.DataFile = result.DataFile
		j.PopulatedFile = result.PopulatedFile
		j.Counts = copyCounts(result.Counts)
		j.FinishedAt = &now
	})
	if err == nil {
		r.log.Info("store.job.completed", "job_id", id, "result_file", result.ResultFile)
	}
	return err
}

func (r *MemoryJobs) Fail(_ context.Context, id uuid.UUID, message string) error {
	err := r.update(id, func(j *Job) {
		now := j.UpdatedAt
		j.Status = StatusFailed
		j.Error = message
		j.FinishedAt = &now
	})
	if err == nil {
		r.log.Warn("store.job.failed", "job_id", id, "error", message)
	}
	return err
}

func (r *MemoryJobs) Close() error { return nil }

func (r *MemoryJobs) update(id uuid.UUID, fn func(*Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return notFound(id)
	}
	j.UpdatedAt = r.now().UTC()
	fn(j)
	return nil
}
