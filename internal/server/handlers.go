package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/services/jobs"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type handlers struct {
	svc    JobService
	cfg    RouterConfig
	logger *slog.Logger
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Ready != nil {
		if err := h.cfg.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "hvac-extractor"})
}

// extract handles POST /extract.
func (h *handlers) extract(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), h.logger)
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required", err)
		return
	}
	defer file.Close()
	req := jobs.SubmitRequest{PDF: jobs.Upload{Filename: header.Filename, Body: file}}

	template, theader, err := r.FormFile("template")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid template upload", err)
		return
	default:
		defer template.Close()
		req.Template = &jobs.Upload{Filename: theader.Filename, Body: template}
	}

	job, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		logger.Warn("http.extract.rejected", "filename", header.Filename, "error", err)
		writeError(w, common.HTTPStatus(err), "could not start extraction", err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: job.ID.String(), Status: string(job.Status)})
}

// status handles GET /status/{id}.
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found", nil)
			return
		}
		writeError(w, common.HTTPStatus(err), "job lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// download handles GET /download/{filename}.
func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := h.svc.OutputPath(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found", nil)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found", nil)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "file unreadable", err)
		return
	}

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return xlsxContentType
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := map[string]string{"error": message}
	if err != nil && status < http.StatusInternalServerError {
		resp["detail"] = err.Error()
	}
	writeJSON(w, status, resp)
}
