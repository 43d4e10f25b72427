// Package http implements the REST API of the LUPE evaluation hub: the
// recording form endpoints, history and profile reads, history extras,
// points, and the ambient health/metrics surface.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/command"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/query"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum request body size. Photo uploads arrive
	// base64-encoded in JSON, so this must fit a full-resolution capture.
	MaxBodyBytes int64

	// EnableCORS - enable CORS headers.
	EnableCORS bool

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// EnableMetrics - enable the Prometheus metrics endpoint.
	EnableMetrics bool

	// BearerTokens - valid opaque tokens for the /api routes. Empty
	// disables authentication (local development).
	BearerTokens []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   12 << 20,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Healthy bool              `json:"healthy"`
	Ready   bool              `json:"ready"`
	Checks  map[string]string `json:"checks,omitempty"`
	Message string            `json:"message,omitempty"`
}

// HealthChecker reports on the server's backing services.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command handlers (CQRS write side)
	RecordEvaluation *command.RecordEvaluationHandler
	AttachPhoto      *command.AttachPhotoHandler
	UpdateExtras     *command.UpdateExtrasHandler
	ChangeLevel      *command.ChangeLevelHandler

	// Query handlers (CQRS read side)
	GetHistory      *query.GetHistoryHandler
	GetLatest       *query.GetLatestHandler
	GetPoints       *query.GetPointsHandler
	GetCatalogs     *query.GetCatalogsHandler
	ListEvaluations *query.ListEvaluationsHandler

	// Logger
	Logger *logger.Logger

	// Health check dependencies
	HealthChecker HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     chi.Router
	logger     *logger.Logger
	metrics    *Metrics

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and
// dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.EnableMetrics {
		s.metrics = NewMetrics()
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// buildRouter configures routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	if s.config.EnableCORS {
		r.Use(s.corsMiddleware)
	}
	if s.metrics != nil {
		r.Use(s.metricsMiddleware)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Health & status
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api", func(api chi.Router) {
		api.Use(s.authMiddleware)

		api.Route("/evaluations", func(ev chi.Router) {
			ev.Post("/", s.handleRecordEvaluation)
			ev.Get("/history/{studentId}", s.handleGetHistory)
			ev.Get("/last/{studentId}", s.handleGetLast)
			ev.Get("/lastWithExtras/{studentId}", s.handleGetLastWithExtras)
			ev.Patch("/historial/{studentId}", s.handlePatchExtras)
			ev.Delete("/historial/{studentId}/photo", s.handleRemoveExtrasPhoto)
			ev.Get("/exercises/{level}", s.handleGetExercises)
			ev.Get("/metrics/{level}", s.handleGetMetrics)
			ev.Get("/catalogs", s.handleGetCatalogs)
			ev.Get("/students/{studentId}/evaluations", s.handleListEvaluations)
			ev.Post("/{id}/photo", s.handleAttachEvaluationPhoto)
			ev.Delete("/{id}/photo", s.handleRemoveEvaluationPhoto)
		})

		api.Route("/students", func(st chi.Router) {
			st.Get("/{id}/points", s.handleGetPoints)
			st.Put("/{id}/level", s.handleChangeLevel)
		})
	})

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Router exposes the underlying router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response envelope.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON writes a success JSON response.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		RequestID: getRequestID(r.Context()),
	}

	_ = json.NewEncoder(w).Encode(response)
}

// writeJSONError writes an error JSON response.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	}

	_ = json.NewEncoder(w).Encode(response)
}

// writeDomainError maps domain errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *shared.ValidationError
	if errors.As(err, &vErr) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(JSONResponse{
			Success: false,
			Error:   &APIError{Code: "validation_error", Message: vErr.Reason, Field: vErr.MissingField},
		})
		return
	}

	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, shared.ErrUpload), errors.Is(err, shared.ErrExternalService):
		writeJSONError(w, http.StatusBadGateway, "upstream_error", err.Error())
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrTimeout):
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	default:
		s.logger.Error("unhandled request error",
			logger.String("path", r.URL.Path),
			logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeBody decodes a JSON request body with a size cap.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}
