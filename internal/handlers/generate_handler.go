package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/common"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/models"
)

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	Prompt   string `json:"prompt" validate:"required,min=3"`
	DeviceIP string `json:"device_ip" validate:"required,hostname_port|ip|hostname"`
}

// GenerateHandler accepts firmware generation requests and runs the pipeline
// in the background
type GenerateHandler struct {
	pipeline interfaces.PipelineService
	jobs     interfaces.JobStorage
	events   interfaces.EventService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(
	pipeline interfaces.PipelineService,
	jobs interfaces.JobStorage,
	events interfaces.EventService,
	logger arbor.ILogger,
) *GenerateHandler {
	return &GenerateHandler{
		pipeline: pipeline,
		jobs:     jobs,
		events:   events,
		validate: validator.New(),
		logger:   logger,
	}
}

// GenerateFirmwareHandler handles POST /api/generate. The job is created and
// persisted synchronously; the pipeline runs in the background and the job
// record tracks its progress.
func (h *GenerateHandler) GenerateFirmwareHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	now := time.Now()
	job := &models.FirmwareJob{
		ID:        common.NewJobID(),
		Prompt:    req.Prompt,
		DeviceIP:  req.DeviceIP,
		Status:    models.JobStatusPending,
		Stage:     models.StageGenerate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.jobs.SaveJob(r.Context(), job); err != nil {
		h.logger.Error().Err(err).Msg("Failed to persist job")
		WriteError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	h.logger.Info().
		Str("job_id", job.ID).
		Str("device", job.DeviceIP).
		Msg("Firmware job created")

	if h.events != nil {
		h.events.Publish(r.Context(), interfaces.Event{
			Type: interfaces.EventJobCreated,
			Payload: map[string]interface{}{
				"job_id": job.ID,
				"prompt": job.Prompt,
				"device": job.DeviceIP,
			},
		})
	}

	// Detached from the request context: the pipeline outlives the response
	common.SafeGo(h.logger, "pipelineRun", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if err := h.pipeline.Run(ctx, job); err != nil {
			h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Pipeline run failed")
		}
	})

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"job_id": job.ID,
	})
}
