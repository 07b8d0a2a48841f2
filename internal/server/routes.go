package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Firmware generation pipeline
	mux.HandleFunc("/api/generate", s.app.GenerateHandler.GenerateFirmwareHandler) // POST - create job and run pipeline

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler) // GET - list jobs
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.GetJobHandler)  // GET /{id}

	// API routes - Variables (glue-discovered firmware globals)
	mux.HandleFunc("/api/variables", s.handleVariablesRoute) // GET (list), POST (push to device)

	// Firmware artifacts (devices pull from here during OTA)
	mux.HandleFunc("/firmware/firmware.bin", s.app.FirmwareHandler.ServeFirmwareHandler)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleVariablesRoute routes /api/variables requests (list and update)
func (s *Server) handleVariablesRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET":  s.app.VariableHandler.ListVariablesHandler,
		"POST": s.app.VariableHandler.UpdateVariablesHandler,
	})
}
