package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// Metrics provides Prometheus metrics for sync runs, mutations and remote calls.
// Collection always happens on a private registry; MetricsConfig.Enabled only
// controls the HTTP endpoint.
type Metrics struct {
	config MetricsConfig

	syncRuns     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	driftChanges *prometheus.CounterVec

	mutations          *prometheus.CounterVec
	validationWarnings *prometheus.CounterVec

	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	remoteErrors   *prometheus.CounterVec

	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector.
func NewMetrics(cfg MetricsConfig) *Metrics {
	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		syncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Total number of sync runs by operation and final state",
			},
			[]string{"operation", "state"},
		),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_run_duration_seconds",
				Help:      "Duration of sync runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		driftChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drift_changes_total",
				Help:      "Total number of drift changes detected by kind",
			},
			[]string{"kind"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Total number of document mutations",
			},
			[]string{"operation", "status"},
		),
		validationWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_warnings_total",
				Help:      "Total number of validation warnings by code",
			},
			[]string{"code"},
		),
		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Total number of remote mirror calls",
			},
			[]string{"backend", "operation"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Duration of remote mirror calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		remoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_errors_total",
				Help:      "Total number of remote mirror errors by code",
			},
			[]string{"backend", "code"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by kind and code",
			},
			[]string{"kind", "code"},
		),
	}

	registry.MustRegister(
		m.syncRuns,
		m.syncDuration,
		m.driftChanges,
		m.mutations,
		m.validationWarnings,
		m.remoteCalls,
		m.remoteDuration,
		m.remoteErrors,
		m.errorsByKind,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSyncRun records a finished sync run.
func (m *Metrics) RecordSyncRun(operation, state string, duration time.Duration) {
	m.syncRuns.WithLabelValues(operation, state).Inc()
	m.syncDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDrift records the number of changes of one kind found by a diff.
func (m *Metrics) RecordDrift(kind string, count int) {
	if count > 0 {
		m.driftChanges.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordMutation records a document mutation.
func (m *Metrics) RecordMutation(operation string, err error) {
	status := "committed"
	if err != nil {
		status = "rejected"
		m.RecordError(err)
	}
	m.mutations.WithLabelValues(operation, status).Inc()
}

// RecordWarnings counts validation warnings by code.
func (m *Metrics) RecordWarnings(warnings []engine.Violation) {
	for _, w := range warnings {
		m.validationWarnings.WithLabelValues(w.Code).Inc()
	}
}

// RecordRemoteCall records a remote mirror call and its error, if any.
// A missing key is not counted as an error.
func (m *Metrics) RecordRemoteCall(backend, operation string, duration time.Duration, err error) {
	m.remoteCalls.WithLabelValues(backend, operation).Inc()
	m.remoteDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil && !engine.IsNotFound(err) {
		code := "unknown"
		var e *engine.EngineError
		if asEngineError(err, &e) && e.Code != "" {
			code = e.Code
		}
		m.remoteErrors.WithLabelValues(backend, code).Inc()
	}
}

// RecordError records an error by engine kind and code.
func (m *Metrics) RecordError(err error) {
	if err == nil {
		return
	}
	var e *engine.EngineError
	if asEngineError(err, &e) {
		m.errorsByKind.WithLabelValues(string(e.Kind), e.Code).Inc()
		return
	}
	m.errorsByKind.WithLabelValues("internal", "").Inc()
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer serves metrics until ctx is cancelled. It is a no-op
// when the endpoint is disabled.
func (m *Metrics) StartMetricsServer(ctx context.Context, logger zerolog.Logger) {
	if !m.config.Enabled {
		return
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", m.config.ListenAddress).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func asEngineError(err error, target **engine.EngineError) bool {
	return errors.As(err, target)
}
