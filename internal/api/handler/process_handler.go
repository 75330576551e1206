package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go-archive-merger/internal/model"
	"go-archive-merger/pkg/router"
)

// multipartOverhead is allowed on top of the upload limit for form boundaries and headers.
const multipartOverhead = 1 << 20

// Service is what the handlers need from the job orchestrator.
type Service interface {
	Submit(ctx context.Context, filename string, src io.Reader) (string, error)
	Status(id string) (model.Job, error)
	Result(id string) (string, error)
	Jobs() []model.Job
	DownloadName(id string) string
}

type Handler struct {
	svc            Service
	maxUploadBytes int64
	logger         *slog.Logger
}

func New(svc Service, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// ProcessArchive accepts a zip upload and starts merging it
// @Summary Submit an archive
// @Description Upload a zip of CSV files. The merge runs in the background; poll the status endpoint with the returned process_id.
// @Tags processes
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Zip archive of CSV files"
// @Success 202 {object} map[string]interface{} "Processing started"
// @Failure 400 {object} map[string]interface{} "Missing or invalid upload"
// @Failure 413 {object} map[string]interface{} "Upload too large"
// @Failure 500 {object} map[string]interface{} "Submission failed"
// @Router /process [post]
func (h *Handler) ProcessArchive(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", h.maxUploadBytes))
			return
		}
		// a file input left empty is sent with filename="" and parsed as a plain value
		if errors.Is(err, http.ErrMissingFile) && r.MultipartForm != nil && len(r.MultipartForm.Value["file"]) > 0 {
			writeError(w, http.StatusBadRequest, "No file selected")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Size == 0 {
		writeError(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}
	if !strings.HasSuffix(header.Filename, ".zip") {
		writeError(w, http.StatusBadRequest, "Only ZIP files are supported")
		return
	}

	id, err := h.svc.Submit(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, model.ErrInvalidUpload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("submission failed", "archive", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":     "processing",
		"process_id": id,
	})
}

// GetStatus returns the progress of a process
// @Summary Get process status
// @Description Status, progress percentage, file counters and log lines of a process
// @Tags processes
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} map[string]interface{} "Process status"
// @Failure 404 {object} map[string]interface{} "Process not found"
// @Router /status/{id} [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := router.PathParam(r, "/api/status/")
	job, err := h.svc.Status(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Process not found")
		return
	}

	resp := map[string]interface{}{
		"status":       job.Status,
		"progress":     job.Progress,
		"current_file": job.CurrentFile,
		"total_files":  job.TotalFiles,
		"messages":     job.Messages,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

// DownloadResult serves the merged file of a completed process
// @Summary Download merged file
// @Description Pipe-delimited output of a completed process
// @Tags processes
// @Produce plain
// @Param id path string true "Process ID"
// @Success 200 {file} file "Merged data"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{id} [get]
func (h *Handler) DownloadResult(w http.ResponseWriter, r *http.Request) {
	id := router.PathParam(r, "/api/download/")
	filePath, err := h.svc.Result(id)
	if err != nil {
		if !errors.Is(err, model.ErrJobNotFound) && !errors.Is(err, model.ErrResultNotReady) {
			h.logger.Error("result lookup failed", "job_id", id, "error", err)
		}
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	// Check if file exists
	if _, err := os.Stat(filePath); err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.svc.DownloadName(id)))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, filePath)
}

// ListJobs returns every process known to this server
// @Summary List processes
// @Description All processes since the server started, oldest first, without their log lines
// @Tags processes
// @Produce json
// @Success 200 {array} model.Job "Processes"
// @Router /jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.svc.Jobs()
	for i := range jobs {
		jobs[i].Messages = nil
	}
	writeJSON(w, http.StatusOK, jobs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}
