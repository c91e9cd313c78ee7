// Package web serves the dashboard JSON API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"warnboard/internal/core/app"
	"warnboard/internal/core/config"
	"warnboard/internal/core/ports"
	"warnboard/internal/shared/util"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg      config.Server
	svc      ports.DashboardService
	health   *app.HealthService
	limiters *util.LimiterRegistry
	metrics  bool
	openapi  []byte
	server   *http.Server
}

type Options struct {
	Server        config.Server
	RateLimit     config.RateLimit
	EnableMetrics bool
}

func NewServer(svc ports.DashboardService, health *app.HealthService, opts Options) (*Server, error) {
	doc, err := OpenAPIDocument()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     opts.Server,
		svc:     svc,
		health:  health,
		metrics: opts.EnableMetrics,
		openapi: doc,
	}
	if opts.RateLimit.Enabled {
		s.limiters = util.NewLimiterRegistry(opts.RateLimit.RequestsPerSecond, opts.RateLimit.Burst, opts.RateLimit.ClientTTL)
	}
	return s, nil
}

// Handler returns the full middleware chain over the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/jobs", s.listJobs)
	mux.HandleFunc("POST /api/jobs", s.importJobs)
	mux.HandleFunc("GET /api/jobs/{job}", s.getJob)
	mux.HandleFunc("GET /api/jobs/{job}/builds", s.buildRows)
	mux.HandleFunc("GET /api/jobs/{job}/tools", s.usedTools)
	mux.HandleFunc("GET /api/jobs/{job}/builds/{build}/summary", s.buildSummary)
	mux.HandleFunc("GET /api/jobs/{job}/builds/{build}/tools/{tool}/issues", s.issueRows)
	mux.HandleFunc("GET /api/jobs/{job}/builds/{build}/tools/{tool}/messages", s.messages)
	mux.HandleFunc("GET /api/jobs/{job}/trend", s.toolTrend)
	mux.HandleFunc("GET /api/jobs/{job}/new-vs-fixed", s.newVersusFixed)
	mux.HandleFunc("GET /api/tables/{kind}", s.tableModel)
	mux.HandleFunc("GET /api/tables/{kind}/rows", s.tableRows)

	mux.HandleFunc("GET /health", s.healthCheck)
	mux.HandleFunc("GET /openapi.json", s.openAPI)
	if s.metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	var h http.Handler = mux
	h = withRateLimit(s.limiters, s.cfg.TrustProxy, h)
	h = withRecover(h)
	h = withAccessLog(h)
	h = withRequestID(h)
	return h
}

// Start serves until ctx ends, then shuts down within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		s.closeLimiters()
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Stop() error {
	defer s.closeLimiters()
	if s.server == nil {
		return nil
	}
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	slog.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) closeLimiters() {
	if s.limiters != nil {
		s.limiters.Close()
	}
}
