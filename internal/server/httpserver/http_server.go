// Package httpserver wires the repodoc endpoints into one http.Server with
// graceful shutdown.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/jobs"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
	"git.home.luguber.info/inful/repodoc/internal/metrics"
	"git.home.luguber.info/inful/repodoc/internal/server/handlers"
	"git.home.luguber.info/inful/repodoc/internal/server/middleware"
	"git.home.luguber.info/inful/repodoc/internal/storage"
)

// Options carries the collaborators the server exposes over HTTP.
type Options struct {
	Addr     string
	Store    jobs.Store
	Queue    jobs.Queue
	Recorder metrics.Recorder
	// Local is non-nil only in local storage mode; it enables the bundle
	// serving endpoint.
	Local *storage.LocalBackend
	// Registry backs the /metrics endpoint. Nil falls back to the default
	// Prometheus registry.
	Registry *prometheus.Registry
}

// Server hosts the polling API.
type Server struct {
	httpServer *http.Server
	opts       Options
}

// New builds the route table and middleware chain.
func New(opts Options) *Server {
	jobHandlers := handlers.NewJobHandlers(opts.Store, opts.Queue, opts.Recorder)
	docsHandlers := handlers.NewDocsHandlers(opts.Local)
	monHandlers := handlers.NewMonitoringHandlers(opts.Store, opts.Queue)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", monHandlers.HandleRoot)
	mux.HandleFunc("GET /api/health", monHandlers.HandleHealth)
	mux.HandleFunc("POST /api/analyze", jobHandlers.HandleSubmit)
	mux.HandleFunc("GET /api/status/{job_id}", jobHandlers.HandleStatus)
	mux.HandleFunc("GET /api/result/{job_id}", jobHandlers.HandleResult)
	mux.HandleFunc("GET /api/docs/{job_id}/{path...}", docsHandlers.HandleServeFile)
	metricsHandler := promhttp.Handler()
	if opts.Registry != nil {
		metricsHandler = promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})
	}
	mux.Handle("GET /metrics", metricsHandler)

	chain := middleware.Chain(slog.Default(), rderrors.NewHTTPErrorAdapter(slog.Default()))

	return &Server{
		opts: opts,
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           chain(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until the listener fails or Shutdown is called. It blocks.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", logfields.URL(s.opts.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the composed handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
