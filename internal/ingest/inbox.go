// Package ingest turns a watched inbox directory into submitted extraction
// jobs.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/hvac-extractor/internal/repository"
	"github.com/joseph-ayodele/hvac-extractor/internal/services/jobs"
)

// SubmittedDir is the inbox subdirectory files are moved to once submitted.
const SubmittedDir = "submitted"

type Submitter interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (*repository.Job, error)
}

type InboxConfig struct {
	Dir      string
	Debounce time.Duration
}

// Result is the outcome of one inbox file.
type Result struct {
	Path         string
	JobID        uuid.UUID
	HashHex      string
	Deduplicated bool
}

// Inbox submits every PDF dropped into a directory, once per content hash.
type Inbox struct {
	sub    Submitter
	cfg    InboxConfig
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]uuid.UUID
}

func NewInbox(sub Submitter, cfg InboxConfig, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{sub: sub, cfg: cfg, logger: logger, seen: map[string]uuid.UUID{}}
}

// Run watches the inbox until ctx ends, including files already present.
func (in *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(in.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	events, _, err := Watch(ctx, WatchConfig{Dir: in.cfg.Dir, InitialScan: true, Debounce: in.cfg.Debounce}, in.logger)
	if err != nil {
		return err
	}
	for path := range events {
		if _, err := in.Ingest(ctx, path); err != nil {
			in.logger.Error("ingest.inbox.failed", "path", path, "error", err)
		}
	}
	return nil
}

// Ingest submits one file unless identical content was already submitted,
// then moves it to the submitted subdirectory. A file that disappeared
// before it could be read is skipped.
func (in *Inbox) Ingest(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}
	sum, err := hashFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.HashHex = sum

	in.mu.Lock()
	id, dup := in.seen[sum]
	in.mu.Unlock()
	if dup {
		res.JobID = id
		res.Deduplicated = true
		in.logger.Info("ingest.inbox.duplicate", "path", path, "job_id", id)
		return res, in.archive(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return res, err
	}
	job, err := in.sub.Submit(ctx, jobs.SubmitRequest{PDF: jobs.Upload{Filename: filepath.Base(path), Body: f}})
	f.Close()
	if err != nil {
		return res, err
	}
	res.JobID = job.ID

	in.mu.Lock()
	in.seen[sum] = job.ID
	in.mu.Unlock()
	in.logger.Info("ingest.inbox.submitted", "path", path, "job_id", job.ID, "sha256", sum)
	return res, in.archive(path)
}

func (in *Inbox) archive(path string) error {
	dir := filepath.Join(filepath.Dir(path), SubmittedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(dst)
		dst = fmt.Sprintf("%s-%d%s", dst[:len(dst)-len(ext)], time.Now().UnixNano(), ext)
	}
	return os.Rename(path, dst)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
