// Package server provides the local HTTP server: profile management,
// the live debug feed and the camera preview.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vsubito/volti/internal/capture"
	"github.com/vsubito/volti/internal/server/api"
	"github.com/vsubito/volti/internal/store"
)

// Controller is the part of the running session the API can poke.
type Controller interface {
	// RequestRecalibration asks the session to redo the calibration
	// phase at the next opportunity.
	RequestRecalibration()
}

// Config holds the server configuration. Nil-able fields disable their
// routes, which keeps tests and headless setups simple.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Camera     capture.Camera
	Hub        *SnapshotHub
	Controller Controller
}

// Server is the HTTP front of the application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		profileHandler := api.NewProfileHandler(s.config.Store)
		s.mux.Handle("/api/profiles", profileHandler)
		s.mux.Handle("/api/profiles/", profileHandler)

		s.mux.Handle("/api/triggers", api.NewTriggersHandler(s.config.Store))
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/snapshots", s.config.Hub)
	}

	if s.config.Controller != nil {
		s.mux.HandleFunc("/api/calibrate", s.handleCalibrate)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleCalibrate handles POST requests to /api/calibrate. The
// recalibration itself runs inside the session loop; the request only
// schedules it.
func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.config.Controller.RequestRecalibration()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "scheduled"})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
