// Package http provides the HTTP server and handlers.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/geofacet/internal/application"
	"github.com/jobrunner/geofacet/internal/config"
	"github.com/jobrunner/geofacet/internal/ports/input"
)

// Services bundles the primary ports served over HTTP.
type Services struct {
	Points    input.PointService
	Exports   input.ExportService
	Downloads input.ExportReader
	Maps      input.MapService
	Markers   input.MarkerService
	Health    input.HealthChecker
	Scheduler *application.ExportScheduler // optional
}

// Option customizes the server.
type Option func(*Server)

// WithMetrics registers a request instrumentation middleware and serves the
// metrics handler on path.
func WithMetrics(path string, handler http.Handler, middleware mux.MiddlewareFunc) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = handler
		s.metricsMiddleware = middleware
	}
}

// WithTLS serves HTTPS with the given configuration.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

// Server wraps the HTTP server with application handlers.
type Server struct {
	server   *http.Server
	router   *mux.Router
	services Services
	logger   *slog.Logger
	config   config.ServerConfig

	metricsPath       string
	metricsHandler    http.Handler
	metricsMiddleware mux.MiddlewareFunc
	tlsConfig         *tls.Config
}

// NewServer creates a new HTTP server.
func NewServer(cfg config.ServerConfig, services Services, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		services: services,
		logger:   logger,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		TLSConfig:         s.tlsConfig,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.metricsMiddleware != nil {
		r.Use(s.metricsMiddleware)
	}
	if s.config.CORS.Enabled() {
		r.Use(s.corsMiddleware)
	}

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Layers and point models
	api.HandleFunc("/layers", s.handleListLayers).Methods(http.MethodGet)
	api.HandleFunc("/layers/{layerId}/points", s.handleLayerPoints).Methods(http.MethodGet)

	// Exports
	api.HandleFunc("/layers/{layerId}/export", s.handleExportLayer).Methods(http.MethodPost)
	if s.services.Scheduler != nil {
		api.HandleFunc("/exports/run", s.handleRunExports).Methods(http.MethodPost)
	}
	api.HandleFunc("/exports/{key:.+}", s.handleDownloadExport).Methods(http.MethodGet)

	// Maps, markers and geometry
	api.HandleFunc("/maps/{mapId}", s.handleLoadMap).Methods(http.MethodGet)
	api.HandleFunc("/markers", s.handleMarkerDescriptions).Methods(http.MethodGet)
	api.HandleFunc("/markers/values", s.handleMarkerValues).Methods(http.MethodGet)
	api.HandleFunc("/geometry", s.handleBuildGeometry).Methods(http.MethodPost)

	// OpenAPI spec and Swagger UI
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleSwaggerUI).Methods(http.MethodGet)

	if s.metricsHandler != nil {
		r.Handle(s.metricsPath, s.metricsHandler).Methods(http.MethodGet)
	}

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	var err error
	if s.tlsConfig != nil {
		s.logger.Info("starting HTTPS server", "address", s.config.Address())
		err = s.server.ListenAndServeTLS("", "")
	} else {
		s.logger.Info("starting HTTP server", "address", s.config.Address())
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
