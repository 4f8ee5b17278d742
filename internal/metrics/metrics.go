package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors for the service. A nil *Metrics
// is valid and records nothing, so callers never need to guard.
type Metrics struct {
	registry *prometheus.Registry

	inferenceRequests *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
	inferenceRetries  *prometheus.CounterVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	timelineEvents    prometheus.Gauge

	server *http.Server
	logger *zap.Logger
}

// New creates and registers the service collectors
func New(logger *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		logger:   logger,
		inferenceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_inference_requests_total",
			Help: "Inference API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		inferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "activity_inference_duration_seconds",
			Help:    "Inference API request duration including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		inferenceRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_inference_retries_total",
			Help: "Retried inference API requests by operation and reason.",
		}, []string{"operation", "reason"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_cache_hits_total",
			Help: "Classification cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_cache_misses_total",
			Help: "Classification cache misses.",
		}),
		timelineEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "activity_timeline_events",
			Help: "Events currently held in the session timeline.",
		}),
	}

	registry.MustRegister(
		m.inferenceRequests,
		m.inferenceDuration,
		m.inferenceRetries,
		m.cacheHits,
		m.cacheMisses,
		m.timelineEvents,
	)

	return m
}

// ObserveInference records one completed inference call
func (m *Metrics) ObserveInference(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inferenceRequests.WithLabelValues(operation, outcome).Inc()
	m.inferenceDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// IncRetry records one retried inference request
func (m *Metrics) IncRetry(operation, reason string) {
	if m == nil {
		return
	}
	m.inferenceRetries.WithLabelValues(operation, reason).Inc()
}

// IncCacheHit records a classification cache hit
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// IncCacheMiss records a classification cache miss
func (m *Metrics) IncCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// SetTimelineEvents records the current timeline size
func (m *Metrics) SetTimelineEvents(n int) {
	if m == nil {
		return
	}
	m.timelineEvents.Set(float64(n))
}

// Start serves /metrics on its own listener
func (m *Metrics) Start(addr string) error {
	if m == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	m.logger.Info("Metrics server started", zap.String("address", addr))
	return nil
}

// Stop shuts down the metrics listener
func (m *Metrics) Stop(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
