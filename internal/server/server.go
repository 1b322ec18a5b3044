// Package server provides the paletted HTTP server: operational endpoints,
// the middleware chain, and mounting of API route registrars.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/HerbHall/palette/internal/version"
)

// ReadinessChecker returns nil when the server can serve traffic.
type ReadinessChecker func(ctx context.Context) error

// RouteRegistrar mounts API routes. Defined here so handler packages do not
// need to be imported by the server.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Options configures a Server.
type Options struct {
	Addr   string
	Logger *zap.Logger
	Ready  ReadinessChecker
	// Auth runs after the access log and before rate limiting; nil disables
	// auth. It should call SetUser for authenticated requests.
	Auth      Middleware
	RateLimit RateLimit
	// DevMode serves Swagger UI at /swagger/.
	DevMode bool
	Routes  []RouteRegistrar
}

// Server is the paletted HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	ready      ReadinessChecker
}

// New creates a Server with middleware and routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		ready:  opts.Ready,
	}

	s.registerRoutes()
	for _, r := range opts.Routes {
		r.RegisterRoutes(mux)
	}
	if opts.DevMode {
		mux.Handle("GET /swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		logger.Info("swagger UI enabled (dev_mode)", zap.String("path", "/swagger/"))
	}

	rl := opts.RateLimit
	if rl.RPS <= 0 {
		rl = DefaultRateLimit()
	}

	// Outermost first. Recovery sits inside the access log so panics are
	// logged with their 500; rate limiting sits inside auth so it can key
	// on the user.
	middlewares := []Middleware{
		AccessLogMiddleware(logger, "/healthz", "/readyz", "/metrics"),
		RecoveryMiddleware(logger),
		HeadersMiddleware,
	}
	if opts.Auth != nil {
		middlewares = append(middlewares, opts.Auth)
	}
	middlewares = append(middlewares, RateLimitMiddleware(rl))

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           Chain(mux, middlewares...),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: websocket streams are long-lived.
	}
	return s
}

// Handler returns the fully wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz is the liveness check.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReadyz reports whether dependencies (the database) are reachable.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Service string            `json:"service" example:"paletted"`
	Version map[string]string `json:"version"`
}

// handleHealth returns service health with build information.
//
//	@Summary		Health check
//	@Description	Returns service health status with version information.
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "paletted",
		Version: version.Map(),
	})
}
