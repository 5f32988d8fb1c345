// Package server exposes readiness checks, one-shot frame verification,
// symbol export and the live verification session over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/auth"
	"github.com/qrforge/scan-readiness/pkg/config"
	"github.com/qrforge/scan-readiness/pkg/readiness"
	"github.com/qrforge/scan-readiness/pkg/render"
	"github.com/qrforge/scan-readiness/pkg/verify"
)

// Services are the components the HTTP handlers delegate to. Controller
// may be nil, in which case the session routes are not registered.
type Services struct {
	Assessor   *readiness.Assessor
	Renderer   render.SymbolRenderer
	Detector   verify.Detector
	Controller *verify.Controller
}

// Server represents the HTTP API server
type Server struct {
	config     *config.Config
	services   Services
	painter    *verify.Painter
	router     *mux.Router
	httpServer *http.Server
	logger     *logrus.Logger
	ready      atomic.Bool
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, services Services, logger *logrus.Logger) *Server {
	s := &Server{
		config:   cfg,
		services: services,
		painter:  &verify.Painter{},
		router:   mux.NewRouter(),
		logger:   logger,
	}

	s.setupRoutes()

	readTimeout, _ := cfg.ParseDuration(cfg.Server.ReadTimeout)
	writeTimeout, _ := cfg.ParseDuration(cfg.Server.WriteTimeout)

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        s.router,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return s
}

// setupRoutes configures HTTP routes and middleware
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.requestSizeLimitMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if authenticator := auth.NewAuthenticator(s.config.Server.Auth, s.logger); authenticator.Enabled() {
		api.Use(authenticator.Middleware)
	}

	api.HandleFunc("/readiness", s.handleAssess).Methods(http.MethodPost)
	api.HandleFunc("/verify", s.handleVerifyFrame).Methods(http.MethodPost)
	api.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)

	if s.services.Controller != nil {
		api.HandleFunc("/session", s.handleOpenSession).Methods(http.MethodPost)
		api.HandleFunc("/session", s.handleGetSession).Methods(http.MethodGet)
		api.HandleFunc("/session", s.handleCloseSession).Methods(http.MethodDelete)
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReadiness).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the root handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithFields(logrus.Fields{
		"port": s.config.Server.Port,
		"auth": s.config.Server.Auth.Type,
	}).Info("Starting HTTP server")

	s.ready.Store(true)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.ready.Store(false)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// SetReady sets the readiness status
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// handleHealth returns the health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// handleReadiness returns the readiness status
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// loggingMiddleware logs all HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"status_code": rw.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("HTTP request")
	})
}

// requestSizeLimitMiddleware enforces maximum request size
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
