package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// A nil *Metrics is valid and records nothing, so components can be
// constructed without a registry in tests and one-shot CLI runs.
type Metrics struct {
	// RPC
	rpcCallsTotal      *prometheus.CounterVec
	rpcCallDuration    *prometheus.HistogramVec
	rpcRetries         *prometheus.CounterVec
	rpcRateLimitHits   prometheus.Counter
	rpcSignaturesCount prometheus.Histogram

	// Analysis
	transactionsResolved *prometheus.CounterVec
	analysesTotal        *prometheus.CounterVec
	analysisDuration     prometheus.Histogram
	linksDiscovered      prometheus.Histogram
	correlationChecks    *prometheus.CounterVec

	// Workflow
	activityDuration *prometheus.HistogramVec

	// Database
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletlink_rpc_calls_total",
				Help: "Total number of JSON-RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletlink_rpc_call_duration_seconds",
				Help:    "Duration of JSON-RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		rpcRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletlink_rpc_retries_total",
				Help: "Total number of JSON-RPC retry attempts",
			},
			[]string{"method", "reason"},
		),
		rpcRateLimitHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "walletlink_rpc_rate_limit_hits_total",
				Help: "Total number of HTTP 429 responses from the RPC endpoint",
			},
		),
		rpcSignaturesCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "walletlink_rpc_signatures_per_call",
				Help:    "Number of signatures returned per getSignaturesForAddress call",
				Buckets: []float64{0, 1, 10, 25, 50, 100, 250, 1000},
			},
		),

		transactionsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletlink_transactions_resolved_total",
				Help: "Total number of transaction lookups by outcome",
			},
			[]string{"status"},
		),
		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletlink_analyses_total",
				Help: "Total number of wallet analyses by outcome",
			},
			[]string{"status"},
		),
		analysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "walletlink_analysis_duration_seconds",
				Help:    "Duration of a full wallet analysis in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		linksDiscovered: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "walletlink_links_discovered",
				Help:    "Number of counterparty wallets discovered per analysis",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		correlationChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletlink_correlation_checks_total",
				Help: "Total number of funding correlation checks by result",
			},
			[]string{"result"},
		),

		activityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletlink_activity_duration_seconds",
				Help:    "Duration of workflow activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"activity", "status"},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletlink_db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletlink_db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletlink_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletlink_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletlink_nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletlink_nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"status"},
		),
	}
}

// RecordRPCCall records a JSON-RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(method, status).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(duration)
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	if m == nil {
		return
	}
	m.rpcRetries.WithLabelValues(method, reason).Inc()
}

// RecordRateLimitHit records a 429 response.
func (m *Metrics) RecordRateLimitHit() {
	if m == nil {
		return
	}
	m.rpcRateLimitHits.Inc()
}

// RecordSignaturesPerCall records the number of signatures listed.
func (m *Metrics) RecordSignaturesPerCall(count int) {
	if m == nil {
		return
	}
	m.rpcSignaturesCount.Observe(float64(count))
}

// RecordTransactionResolved records a transaction lookup outcome ("ok", "missing").
func (m *Metrics) RecordTransactionResolved(status string) {
	if m == nil {
		return
	}
	m.transactionsResolved.WithLabelValues(status).Inc()
}

// RecordAnalysis records a completed (or abandoned) analysis.
func (m *Metrics) RecordAnalysis(status string, duration float64, links int) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(status).Inc()
	m.analysisDuration.Observe(duration)
	if status == "success" {
		m.linksDiscovered.Observe(float64(links))
	}
}

// RecordCorrelationCheck records one funding correlation pass.
func (m *Metrics) RecordCorrelationCheck(matched bool) {
	if m == nil {
		return
	}
	result := "unmatched"
	if matched {
		result = "matched"
	}
	m.correlationChecks.WithLabelValues(result).Inc()
}

// RecordActivityDuration records activity execution duration.
func (m *Metrics) RecordActivityDuration(activity string, duration float64, err error) {
	if m == nil {
		return
	}
	m.activityDuration.WithLabelValues(activity, errStatus(err)).Observe(duration)
}

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation string, duration float64, err error) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(operation).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, errStatus(err)).Inc()
}

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(duration float64, err error) {
	if m == nil {
		return
	}
	status := errStatus(err)
	m.natsMessagesPublished.WithLabelValues(status).Inc()
	m.natsPublishDuration.WithLabelValues(status).Observe(duration)
}

func errStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
