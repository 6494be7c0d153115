// Package server exposes the job tracker over HTTP and the daemon's gRPC
// health endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/hvac-extractor/internal/services/jobs"
	"github.com/joseph-ayodele/hvac-extractor/internal/repository"
)

// JobService is what the HTTP handlers need from the job tracker.
type JobService interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (*repository.Job, error)
	Status(ctx context.Context, id string) (*repository.Job, error)
	OutputPath(name string) (string, error)
}

type RouterConfig struct {
	RequestTimeout time.Duration
	// MaxUploadBytes bounds the multipart body of POST /extract.
	MaxUploadBytes int64
	AllowedOrigins []string
	// Ready reports dependency health for GET /health. Nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter wires the job endpoints:
//
//	POST /extract            multipart "file" (PDF) and optional "template" (XLSX)
//	GET  /status/{id}        job state
//	GET  /download/{name}    generated workbook or dataset
//	GET  /health
func NewRouter(svc JobService, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 256 << 20
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	h := &handlers{svc: svc, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", h.health)
	r.Post("/extract", h.extract)
	r.Get("/status/{id}", h.status)
	r.Get("/download/{filename}", h.download)
	return r
}
