package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/walletflow/internal/api/middleware"
	"github.com/dvloznov/walletflow/internal/gcs"
	"github.com/dvloznov/walletflow/internal/jobs"
	"github.com/dvloznov/walletflow/internal/renderer"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	sources   *renderer.Sources
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler. sources is used to validate
// job sources before they are enqueued.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, sources *renderer.Sources, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		sources:   sources,
		log:       log,
	}
}

// CreateJob handles POST /api/diagrams/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceURI string             `json:"source_uri"`
		OutputURI string             `json:"output_uri"`
		Options   jobs.RenderOptions `json:"options"`
	}

	if !decodeJSON(w, r, DefaultMaxBodyBytes, &req) {
		return
	}

	if req.SourceURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source_uri is required")
		return
	}
	if err := h.sources.CheckURI(req.SourceURI); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OutputURI != "" {
		if _, _, err := gcs.ParseGCSURI(req.OutputURI); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "output_uri must be a gs:// object URI")
			return
		}
	}
	if _, err := renderer.JobOptions(req.Options); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	job := &jobs.RenderDiagramJob{
		SourceURI: req.SourceURI,
		OutputURI: req.OutputURI,
		Options:   req.Options,
	}

	if err := h.publisher.PublishRenderDiagram(ctx, job); err != nil {
		if errors.Is(err, jobs.ErrQueueClosed) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Job queue is shutting down")
			return
		}
		h.log.Error().Err(err).Msg("Failed to enqueue render job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue render job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source_uri", req.SourceURI).Msg("Render job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"source_uri": req.SourceURI,
		"status":     string(jobs.JobStatusPending),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		SourceURI: query.Get("source_uri"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
