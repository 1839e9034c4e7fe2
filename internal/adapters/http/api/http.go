// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/tracker/internal/domain/analytics"
	"github.com/okian/tracker/internal/domain/model"
	"github.com/okian/tracker/pkg/logger"
)

// Default limits.
const (
	DefaultMaxBodyBytes = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Track stamps and persists one submission.
	Track(ctx context.Context, req model.TrackRequest) (model.Event, error)

	// Stats recomputes the summary over every stored event.
	Stats(ctx context.Context) (analytics.Summary, error)

	// Export returns the raw stored log, or an error wrapping
	// repository.ErrEmpty when nothing is stored.
	Export(ctx context.Context) ([]byte, error)

	// Clear wipes the store.
	Clear(ctx context.Context) error
}

// Server wires HTTP routes for the tracking API.
type Server struct {
	deps         Dependencies
	adminPIN     string
	maxBodyBytes int64
	origins      []string
	logger       logger.Logger

	healthHandler    *HealthHandler
	dashboardHandler *dashboardHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAdminPIN sets the shared secret guarding the owner endpoints.
func WithAdminPIN(pin string) Option {
	return func(s *Server) {
		s.adminPIN = pin
	}
}

// WithMaxBodyBytes caps the accepted request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithAllowedOrigins sets the CORS origins. An empty list allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:             deps,
		maxBodyBytes:     DefaultMaxBodyBytes,
		logger:           logger.Nop(),
		healthHandler:    NewHealthHandler(),
		dashboardHandler: newDashboardHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("/owner", MetricsMiddleware(s.dashboardHandler.HandleOwner, "owner"))
	mux.HandleFunc("/tracker.js", MetricsMiddleware(s.dashboardHandler.HandleTrackerScript, "tracker_js"))
	mux.HandleFunc("/track", MetricsMiddleware(s.handleTrack, "track"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.requirePIN(s.handleStats, "stats"), "stats"))
	mux.HandleFunc("/export", MetricsMiddleware(s.requirePIN(s.handleExport, "export"), "export"))
	mux.HandleFunc("/clear", MetricsMiddleware(s.requirePIN(s.handleClear, "clear"), "clear"))
}

// Handler wraps next with the CORS policy configured on s.
func (s *Server) Handler(next http.Handler) http.Handler {
	return CORSMiddleware(s.origins)(next)
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err using the status and code of its kind. Server-side
// failures are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: messageOf(err, status)})
}
