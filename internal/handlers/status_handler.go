package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/models"
)

// StatusHandler reports aggregate application state
type StatusHandler struct {
	jobs      interfaces.JobStorage
	glue      interfaces.GlueStorage
	startedAt time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(jobs interfaces.JobStorage, glue interfaces.GlueStorage, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		jobs:      jobs,
		glue:      glue,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	counts := map[string]int{}
	for _, status := range []models.JobStatus{
		models.JobStatusPending,
		models.JobStatusRunning,
		models.JobStatusCompleted,
		models.JobStatusFailed,
	} {
		count, err := h.jobs.CountJobs(r.Context(), status)
		if err != nil {
			h.logger.Warn().Err(err).Str("status", string(status)).Msg("Failed to count jobs")
			continue
		}
		counts[string(status)] = count
	}

	response := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"jobs":           counts,
	}

	if artifact, err := h.glue.LatestArtifact(r.Context()); err == nil && artifact != nil {
		response["last_glue"] = map[string]interface{}{
			"source":       artifact.SourcePath,
			"variables":    len(artifact.Variables),
			"generated_at": artifact.GeneratedAt,
		}
	}

	WriteJSON(w, http.StatusOK, response)
}
