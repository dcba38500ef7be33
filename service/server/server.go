package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/walletlink/service/db"
	"github.com/brojonat/walletlink/service/linker"
	"github.com/brojonat/walletlink/service/metrics"
	natspkg "github.com/brojonat/walletlink/service/nats"
)

// ReportStore is the report archive used by the read endpoints.
type ReportStore interface {
	SaveReport(ctx context.Context, report *linker.Report) (*db.StoredReport, error)
	GetReport(ctx context.Context, id int64) (*db.StoredReport, error)
	ListReports(ctx context.Context, target string, limit int32) ([]*db.StoredReport, error)
}

// Server represents the HTTP server for the analysis API.
type Server struct {
	addr       string
	runner     AnalysisRunner
	store      ReportStore
	subscriber natspkg.Subscriber
	metrics    *metrics.Metrics
	logger     *slog.Logger
	server     *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The store is optional - if nil, report history endpoints won't be available.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, runner AnalysisRunner, store ReportStore, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		runner:  runner,
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// WithSubscriber enables the report event stream.
func (s *Server) WithSubscriber(sub natspkg.Subscriber) *Server {
	s.subscriber = sub
	return s
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	instrument := func(name string, h http.Handler) http.Handler {
		return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}

	mux.Handle("POST /api/v1/analyses", instrument("/api/v1/analyses", handleAnalyze(s.runner, s.logger)))

	// Report history (if an archive is configured)
	if s.store != nil {
		mux.Handle("GET /api/v1/analyses/{address}", instrument("/api/v1/analyses/{address}", handleListReports(s.store, s.logger)))
		mux.Handle("GET /api/v1/reports/{id}", instrument("/api/v1/reports/{id}", handleGetReport(s.store, s.logger)))
	} else {
		s.logger.Warn("report store not configured, history endpoints disabled")
	}

	// SSE streaming endpoints (if NATS is configured)
	if s.subscriber != nil {
		mux.Handle("GET /api/v1/stream/analyses/{address}", handleStreamReports(s.subscriber, s.logger))
		mux.Handle("GET /api/v1/stream/analyses", handleStreamReports(s.subscriber, s.logger))
		s.logger.Info("SSE streaming endpoints enabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Analyses walk counterparty histories and can take minutes;
		// streams are unbounded.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.subscriber != nil {
		s.subscriber.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
