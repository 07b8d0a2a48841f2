package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/models"
)

// UpdateVariablesRequest is the body of POST /api/variables
type UpdateVariablesRequest struct {
	DeviceIP  string            `json:"device_ip" validate:"required"`
	Variables map[string]string `json:"variables" validate:"required,min=1"`
}

// VariableHandler exposes the variables discovered by the last glue pass and
// pushes live updates to devices
type VariableHandler struct {
	glue     interfaces.GlueStorage
	devices  interfaces.DeviceService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewVariableHandler creates a new VariableHandler
func NewVariableHandler(glue interfaces.GlueStorage, devices interfaces.DeviceService, logger arbor.ILogger) *VariableHandler {
	return &VariableHandler{
		glue:     glue,
		devices:  devices,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListVariablesHandler returns the mutable globals from the latest glue
// artifact
func (h *VariableHandler) ListVariablesHandler(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.glue.LatestArtifact(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load glue artifact")
		WriteError(w, http.StatusInternalServerError, "Failed to load variables")
		return
	}

	if artifact == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"variables": []models.VariableDeclaration{},
			"count":     0,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"variables":    artifact.Variables,
		"count":        len(artifact.Variables),
		"source":       artifact.SourcePath,
		"generated_at": artifact.GeneratedAt,
	})
}

// UpdateVariablesHandler pushes new values to a device through its generated
// dispatch function
func (h *VariableHandler) UpdateVariablesHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateVariablesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	results, err := h.devices.SetVariables(r.Context(), req.DeviceIP, req.Variables)
	if err != nil {
		h.logger.Error().Err(err).Str("device", req.DeviceIP).Msg("Variable update failed")
		WriteError(w, http.StatusBadGateway, "Device update failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"results": results,
	})
}
