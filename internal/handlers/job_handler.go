package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/models"
)

// JobHandler exposes firmware job records
type JobHandler struct {
	jobs   interfaces.JobStorage
	logger arbor.ILogger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobs interfaces.JobStorage, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// ListJobsHandler handles GET /api/jobs with optional status, limit, and
// offset query parameters
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit, offset := GetListParams(r)
	opts := &interfaces.JobListOptions{
		Limit:  limit,
		Offset: offset,
	}

	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = models.JobStatus(status)
	}

	jobs, err := h.jobs.ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	if jobs == nil {
		jobs = []*models.FirmwareJob{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
