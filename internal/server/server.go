// Package server exposes repository exploration, statistics, insights and
// exports over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ghexplorer/internal/config"
	"ghexplorer/internal/fetcher"
	gh "ghexplorer/internal/github"
	"ghexplorer/internal/insights"
	"ghexplorer/internal/metrics"
)

// Deps are the collaborators shared by every request.
type Deps struct {
	Client   *gh.Client
	Budget   *fetcher.RequestBudget
	Insights *insights.Generator
	Registry *prometheus.Registry
	Logger   *zap.Logger

	// Defaults seeds the view and targeting settings of every listing request.
	// nil uses config.New().
	Defaults *config.Config

	Now func() time.Time
}

type Server struct {
	router *chi.Mux
	cfg    config.Server
	deps   Deps
	log    *zap.Logger
}

func New(cfg config.Server, deps Deps) (*Server, error) {
	if deps.Client == nil {
		return nil, errors.New("server: github client is required")
	}
	if deps.Insights == nil {
		return nil, errors.New("server: insights generator is required")
	}
	if deps.Budget == nil {
		deps.Budget = fetcher.NewRequestBudget()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Defaults == nil {
		deps.Defaults = config.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	httpMetrics := metrics.NewHTTPMetrics()
	if err := deps.Registry.Register(httpMetrics.Durations); err != nil {
		return nil, err
	}
	if err := deps.Registry.Register(httpMetrics.InFlight); err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		deps:   deps,
		log:    deps.Logger,
	}

	// RequestID → RealIP → Metrics → Logging → Recoverer
	s.router.Use(RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(httpMetrics.Middleware)
	s.router.Use(RequestLogger(s.log))
	s.router.Use(middleware.Recoverer)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "the requested resource was not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "the requested method is not allowed for this resource")
	})

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/repos", s.handleRepos)
		r.Get("/repos/{owner}/{repo}/stats", s.handleStats)
		r.Get("/repos/{owner}/{repo}/insights", s.handleInsights)
		r.Get("/export", s.handleExport)
		r.Get("/rate-limit", s.handleRateLimit)
	})
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on cfg.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
