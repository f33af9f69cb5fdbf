package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clipforge/remuxd/internal/domain"
	"github.com/clipforge/remuxd/internal/pipeline"
	"github.com/clipforge/remuxd/internal/repository"
)

// Processor runs the remux pipeline for one URL.
type Processor interface {
	Process(ctx context.Context, rawURL string, sink pipeline.Sink) domain.Outcome
}

// RemuxHandler handles remux-related HTTP requests.
type RemuxHandler struct {
	processor  Processor
	jobRepo    repository.JobRepository
	maxRetries int
	logger     *slog.Logger
}

// NewRemuxHandler creates a new remux handler.
func NewRemuxHandler(processor Processor, jobRepo repository.JobRepository, maxRetries int, logger *slog.Logger) *RemuxHandler {
	return &RemuxHandler{
		processor:  processor,
		jobRepo:    jobRepo,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// RemuxRequest is the JSON request body for remux submission.
type RemuxRequest struct {
	URL string `json:"url"`
}

// MediaResponse carries a delivered payload.
type MediaResponse struct {
	MediaType string `json:"media_type"`
	DataURI   string `json:"data_uri"`
	SizeBytes int    `json:"size_bytes"`
}

// JobResponse describes a queued or finished job.
type JobResponse struct {
	JobID       string    `json:"job_id"`
	URL         string    `json:"url"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts,omitempty"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	MediaType   string    `json:"media_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	DataURI     string    `json:"data_uri,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Remux handles POST /api/v1/remux: the full pipeline, synchronously.
func (h *RemuxHandler) Remux(w http.ResponseWriter, r *http.Request) {
	var req RemuxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrEmptyURL.Error())
		return
	}

	var delivered domain.MediaPayload
	sink := pipeline.SinkFunc(func(ctx context.Context, payload domain.MediaPayload) error {
		delivered = payload
		return nil
	})

	outcome := h.processor.Process(r.Context(), req.URL, sink)
	if !outcome.Delivered() {
		h.writeFailure(w, outcome.Failure)
		return
	}

	h.writeJSON(w, http.StatusOK, MediaResponse{
		MediaType: delivered.MediaType,
		DataURI:   delivered.DataURI(),
		SizeBytes: len(delivered.Data),
	})
}

// SubmitJob handles POST /api/v1/jobs.
func (h *RemuxHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req RemuxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrEmptyURL.Error())
		return
	}

	jobID := domain.JobID("job_" + uuid.New().String())
	job := domain.NewJob(jobID, req.URL, h.maxRetries)

	if err := h.jobRepo.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("enqueue failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	h.logger.Info("job submitted", "job_id", jobID, "url", req.URL)

	h.writeJSON(w, http.StatusAccepted, JobResponse{
		JobID:     string(job.ID),
		URL:       job.URL,
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	})
}

// GetJob handles GET /api/v1/jobs/{jobID}.
func (h *RemuxHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.writeError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job, err := h.jobRepo.Get(r.Context(), domain.JobID(jobID))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			h.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("get job failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	resp := JobResponse{
		JobID:       string(job.ID),
		URL:         job.URL,
		Status:      string(job.Status),
		Attempts:    job.Attempts,
		FailureKind: string(job.FailureKind),
		Error:       job.LastError,
		MediaType:   job.MediaType,
		SizeBytes:   job.SizeBytes,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}

	if job.Status == domain.JobStatusCompleted {
		payload, err := h.jobRepo.GetResult(r.Context(), job.ID)
		if err == nil {
			resp.DataURI = payload.DataURI()
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// writeFailure maps a pipeline failure to an HTTP status.
func (h *RemuxHandler) writeFailure(w http.ResponseWriter, failure *domain.Failure) {
	status := http.StatusInternalServerError
	switch failure.Kind {
	case domain.FailureDownloadFailed:
		status = http.StatusBadGateway
	case domain.FailureToolUnavailable:
		status = http.StatusServiceUnavailable
	case domain.FailureRemuxFailed:
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": failure.Message,
		"kind":  string(failure.Kind),
	})
}

func (h *RemuxHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *RemuxHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
