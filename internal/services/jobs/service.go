// Package jobs runs uploaded drawing sets through extraction and export in
// the background and tracks their progress.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/hvac-extractor/internal/async"
	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/export"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
	"github.com/joseph-ayodele/hvac-extractor/internal/pipeline"
	"github.com/joseph-ayodele/hvac-extractor/internal/repository"
)

// Extractor is the extraction run a job performs.
type Extractor interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type Config struct {
	UploadDir string
	OutputDir string
	Report    export.ReportOptions
}

// Upload is one file received with a submission.
type Upload struct {
	Filename string
	Body     io.Reader
}

// SubmitRequest carries the drawing set and an optional customer template.
type SubmitRequest struct {
	PDF      Upload
	Template *Upload
}

// Service handles job submission, status lookup and processing.
type Service struct {
	repo      repository.JobRepository
	queue     async.Queue
	extractor Extractor
	report    *export.ReportWriter
	populator *export.TemplatePopulator
	cfg       Config
	logger    *slog.Logger
}

func NewService(repo repository.JobRepository, extractor Extractor, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	return &Service{
		repo:      repo,
		extractor: extractor,
		report:    export.NewReportWriter(cfg.Report, logger),
		populator: export.NewTemplatePopulator(logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// UseQueue sets the queue Submit hands jobs to. The queue's handler is
// normally the service's own Run.
func (s *Service) UseQueue(q async.Queue) {
	s.queue = q
}

// Submit stores the uploads, records a queued job and enqueues it.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*repository.Job, error) {
	if s.queue == nil {
		return nil, common.ConfigurationError("job queue is not configured", nil)
	}
	pdfName, err := uploadName(req.PDF.Filename, ".pdf")
	if err != nil {
		return nil, err
	}
	var templateName string
	if req.Template != nil {
		if templateName, err = uploadName(req.Template.Filename, ".xlsx"); err != nil {
			return nil, err
		}
	}

	id := uuid.New()
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	job := repository.Job{ID: id, Filename: pdfName}
	job.PDFPath = filepath.Join(s.cfg.UploadDir, id.String()+"_"+pdfName)
	if err := saveUpload(job.PDFPath, req.PDF.Body); err != nil {
		return nil, err
	}
	if req.Template != nil {
		job.TemplatePath = filepath.Join(s.cfg.UploadDir, id.String()+"_"+templateName)
		if err := saveUpload(job.TemplatePath, req.Template.Body); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.Create(ctx, job)
	if err != nil {
		return nil, err
	}
	err = s.queue.Enqueue(ctx, async.Job{ID: id, SubmittedAt: time.Now(), RequestID: common.RequestIDFromContext(ctx)})
	if err != nil {
		s.logger.Error("jobs.submit.enqueue_failed", "job_id", id, "error", err)
		_ = s.repo.Fail(context.WithoutCancel(ctx), id, "enqueue: "+err.Error())
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	s.logger.Info("jobs.submit.ok", "job_id", id, "filename", pdfName, "template", templateName != "")
	return created, nil
}

// Status returns the job with the given id. Malformed ids are not found.
func (s *Service) Status(ctx context.Context, id string) (*repository.Job, error) {
	jobID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, common.NotFoundError("job " + id)
	}
	return s.repo.Get(ctx, jobID)
}

// OutputPath resolves a generated file name inside the output directory.
// Names with path components are rejected as not found.
func (s *Service) OutputPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", common.NotFoundError("file " + name)
	}
	path := filepath.Join(s.cfg.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", common.NotFoundError("file " + name)
	}
	return path, nil
}

// Run processes one queued job: extraction, the dataset dump, the optional
// template population, then the report. Any failure marks the job failed.
func (s *Service) Run(ctx context.Context, qj async.Job) error {
	ctx = common.WithJobID(ctx, qj.ID.String())
	if qj.RequestID != "" {
		ctx = common.WithRequestID(ctx, qj.RequestID)
	}
	logger := common.LoggerFromContext(ctx, s.logger)

	job, err := s.repo.Get(ctx, qj.ID)
	if err != nil {
		return err
	}
	result, err := s.process(ctx, job, logger)
	if err != nil {
		if ferr := s.repo.Fail(context.WithoutCancel(ctx), job.ID, err.Error()); ferr != nil {
			logger.Error("jobs.run.record_failure", "error", ferr)
		}
		logger.Error("jobs.run.failed", "error", err)
		return err
	}
	if err := s.repo.Complete(context.WithoutCancel(ctx), job.ID, result); err != nil {
		return err
	}
	logger.Info("jobs.run.ok", "result_file", result.ResultFile, "counts", result.Counts)
	return nil
}

func (s *Service) process(ctx context.Context, job *repository.Job, logger *slog.Logger) (repository.JobResult, error) {
	var out repository.JobResult
	id := job.ID.String()
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return out, fmt.Errorf("create output dir: %w", err)
	}

	if err := s.repo.UpdateStep(ctx, job.ID, repository.StepExtracting); err != nil {
		return out, err
	}
	res, err := s.extractor.Run(ctx, pipeline.Request{Path: job.PDFPath})
	if err != nil {
		return out, err
	}
	out.Counts = res.Counts
	ds := res.Dataset

	out.DataFile = "data_" + id + ".json"
	err = writeOutput(filepath.Join(s.cfg.OutputDir, out.DataFile), func(w io.Writer) error {
		return export.WriteDataset(w, ds, export.FormatJSON)
	})
	if err != nil {
		return out, err
	}

	if job.TemplatePath != "" && fileExists(job.TemplatePath) {
		if err := s.repo.UpdateStep(ctx, job.ID, repository.StepPopulating); err != nil {
			return out, err
		}
		populated, stats, err := s.populate(job.TemplatePath, ds)
		if err != nil {
			return out, err
		}
		out.PopulatedFile = "populated_" + id + ".xlsx"
		err = writeOutput(filepath.Join(s.cfg.OutputDir, out.PopulatedFile), func(w io.Writer) error {
			_, err := populated.WriteTo(w)
			return err
		})
		if err != nil {
			return out, err
		}
		if len(stats.Missing) > 0 {
			logger.Warn("jobs.populate.missing_sheets", "tags", stats.Missing)
		}
	}

	if err := s.repo.UpdateStep(ctx, job.ID, repository.StepReporting); err != nil {
		return out, err
	}
	report, _, err := s.report.Write(ds)
	if err != nil {
		return out, err
	}
	out.ResultFile = "hvac_report_" + id + ".xlsx"
	err = writeOutput(filepath.Join(s.cfg.OutputDir, out.ResultFile), func(w io.Writer) error {
		_, err := report.WriteTo(w)
		return err
	})
	return out, err
}

func (s *Service) populate(path string, ds hvac.Dataset) (*bytes.Buffer, export.PopulateStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, export.PopulateStats{}, common.InputError("open template", err)
	}
	defer f.Close()
	return s.populator.Populate(f, ds)
}
