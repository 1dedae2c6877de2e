// ABOUTME: SigmaChain HTTP server exposing workflow execution, history, and pipeline management
// ABOUTME: behind a chi router with CORS, request logging, static images, and Prometheus metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saicharanallam/sigmachain/pipeline"
	"github.com/saicharanallam/sigmachain/steps"
	"go.uber.org/zap"
)

const (
	// ServiceName is reported by the root banner.
	ServiceName = "SigmaChain Agentic Image Generation"

	// Version is the API version reported by the root banner.
	Version = "1.0.0"
)

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	Addr            string   // listen address (default: ":8000")
	CORSOrigins     []string // allowed browser origins
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RunTimeout      time.Duration // upper bound on one /api/generate run; 0 means none

	Engine  *pipeline.Engine
	Catalog *steps.Catalog      // steps insertable at runtime; nil disables insertion
	Images  *steps.ImageStore   // served under its URL prefix when set
	Metrics prometheus.Gatherer // served at /metrics (default: prometheus.DefaultGatherer)

	// StepOptions are applied to every step inserted through the API.
	StepOptions []pipeline.StepOption

	Logger *zap.Logger
}

// Server is the SigmaChain HTTP API.
type Server struct {
	cfg    ServerConfig
	engine *pipeline.Engine
	logger *zap.Logger
	router chi.Router
}

// NewServer validates cfg and builds the router.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("web: Engine must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		engine: cfg.Engine,
		logger: cfg.Logger,
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Metrics, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/history", s.handleHistory)
		r.Route("/workflow/{workflowID}", func(r chi.Router) {
			r.Get("/", s.handleWorkflow)
			r.Get("/report", s.handleWorkflowReport)
			r.Get("/export", s.handleWorkflowExport)
		})
		r.Get("/pipeline", s.handlePipeline)
		r.Post("/pipeline/steps", s.handleAddStep)
		r.Delete("/pipeline/steps/{name}", s.handleRemoveStep)
	})

	if s.cfg.Images != nil {
		prefix := strings.TrimSuffix(s.cfg.Images.URLPrefix(), "/")
		files := http.StripPrefix(prefix+"/", noDirListing(http.FileServer(http.Dir(s.cfg.Images.Dir()))))
		r.Handle(prefix+"/*", files)
	}

	return r
}

// noDirListing rejects directory paths so the image directory cannot be browsed.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
