// Package server provides the local HTTP control plane for the pointer
// pipeline: state inspection, live tuning, profiles, session history and
// the websocket event stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	App       *app.App
	Store     *store.Store
	StaticDir string
	// OnShutdown is invoked after a /api/shutdown request has been
	// acknowledged. The process owner decides what stopping means.
	OnShutdown func()
}

// Server is the HTTP control plane.
type Server struct {
	config  Config
	mux     *http.ServeMux
	start   time.Time
	httpSrv *http.Server
}

// New creates a new Server with the given configuration.
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
	s.mux.HandleFunc("/api/shutdown", s.handleShutdown)

	if s.config.App != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.HandleFunc("/api/config", s.handleConfig)
		s.mux.HandleFunc("/api/enabled", s.handleEnabled)
		s.mux.Handle("/api/events", NewEventsHandler(s.config.App))
	}

	if s.config.Store != nil {
		var pipeline api.Pipeline
		if s.config.App != nil {
			pipeline = s.config.App
		}
		profileHandler := api.NewProfileHandler(s.config.Store, pipeline)
		s.mux.Handle("/api/profiles", profileHandler)
		s.mux.Handle("/api/profiles/", profileHandler)

		sessionsHandler := api.NewSessionsHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessionsHandler)
		s.mux.Handle("/api/sessions/", sessionsHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// respond writes a JSON response with the given status code.
func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	running := false
	if s.config.App != nil {
		running = s.config.App.Running()
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"running": running,
	})
}

// handleState handles GET requests to /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respond(w, http.StatusOK, s.config.App.Snapshot())
}

// handleConfig handles GET and PUT requests to /api/config. PUT takes a
// full tuning document; an invalid one is rejected and the running tuning
// stays untouched.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respond(w, http.StatusOK, s.config.App.Tuning())

	case http.MethodPut:
		var t config.Tuning
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := s.config.App.UpdateTuning(t); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respond(w, http.StatusOK, t)

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

// handleEnabled handles GET and POST requests to /api/enabled.
func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:

	case http.MethodPost:
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		s.config.App.SetEnabled(req.Enabled)

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	respond(w, http.StatusOK, map[string]bool{"enabled": s.config.App.IsEnabled()})
}

// handleShutdown handles POST requests to /api/shutdown.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.config.OnShutdown == nil {
		respondError(w, http.StatusServiceUnavailable, "Shutdown not supported")
		return
	}

	respond(w, http.StatusAccepted, map[string]string{"status": "shutting down"})
	go s.config.OnShutdown()
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("Control server listening on %s", addr)

	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
