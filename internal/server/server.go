// Package server provides the HTTP server for the posture analysis service.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ayusman/posturelab/internal/app"
	"github.com/ayusman/posturelab/internal/server/api"
	"github.com/ayusman/posturelab/internal/telemetry"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Metrics   *telemetry.Metrics
	Logger    *slog.Logger
}

// Server represents the HTTP server for the posture service.
type Server struct {
	config  Config
	router  *mux.Router
	handler http.Handler
	logger  *slog.Logger
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		router: mux.NewRouter(),
		logger: logger,
		start:  time.Now(),
	}
	s.setupRoutes()

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	var h http.Handler = s.router
	if config.Metrics != nil {
		h = s.instrument(h)
	}
	s.handler = recovery(cors(h))

	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	if s.config.Metrics != nil {
		s.router.Handle("/metrics", s.config.Metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	if a := s.config.App; a != nil {
		api.NewAnalysisHandler(a).Register(s.router)
		api.NewLiveHandler(a.Slot(), a).Register(s.router)

		if a.Store() != nil {
			api.NewArchiveHandler(a.Store()).Register(s.router)
		}

		s.router.Handle("/api/live", NewLiveFeed(a, s.logger)).Methods(http.MethodGet)
		s.router.Handle("/api/stream", NewStreamHandler(a)).Methods(http.MethodGet)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.PathPrefix("/").Handler(fs).Methods(http.MethodGet, http.MethodHead)
	}
}

// instrument records request metrics labelled by route template. It wraps
// the whole router, so 404 and 405 answers are counted as "unmatched".
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.config.Metrics.WrapHandler(s.routeLabel(r), next).ServeHTTP(w, r)
	})
}

func (s *Server) routeLabel(r *http.Request) string {
	var match mux.RouteMatch
	if !s.router.Match(r, &match) || match.MatchErr != nil || match.Route == nil {
		return "unmatched"
	}
	tpl, err := match.Route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		response["monitoring"] = a.IsEnabled()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
