package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/common"
)

// FirmwareHandler serves published firmware binaries to devices
type FirmwareHandler struct {
	artifacts *common.ArtifactsConfig
	logger    arbor.ILogger
}

// NewFirmwareHandler creates a new FirmwareHandler
func NewFirmwareHandler(artifacts *common.ArtifactsConfig, logger arbor.ILogger) *FirmwareHandler {
	return &FirmwareHandler{
		artifacts: artifacts,
		logger:    logger,
	}
}

// ServeFirmwareHandler handles GET /firmware/firmware.bin. Only the fixed
// artifact name is served; path traversal through the URL is not possible.
func (h *FirmwareHandler) ServeFirmwareHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	path := filepath.Join(h.artifacts.Dir, "firmware.bin")
	info, err := os.Stat(path)
	if err != nil {
		WriteError(w, http.StatusNotFound, "No firmware has been published")
		return
	}

	h.logger.Info().
		Str("remote", r.RemoteAddr).
		Int64("bytes", info.Size()).
		Msg("Serving firmware binary")

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}
