// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All recording methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Poll metrics
	PollCycles *prometheus.CounterVec

	// Filter metrics
	CandidatesSeen   *prometheus.CounterVec
	BelowThreshold   prometheus.Counter
	DedupHits        *prometheus.CounterVec
	NewlySeen        *prometheus.CounterVec
	DedupStoreErrors *prometheus.CounterVec

	// Alert metrics
	AlertsSent   *prometheus.CounterVec
	AlertsFailed *prometheus.CounterVec

	// Upstream metrics
	UpstreamAttempts *prometheus.CounterVec
	UpstreamFailures *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Webhook metrics
	WebhookDeliveries *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "alertflux"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PollCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Total number of poll cycles by source and result",
		}, []string{"source", "result"}),

		CandidatesSeen: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "candidates_total",
			Help:      "Total number of candidates entering the new-entity filter",
		}, []string{"kind"}),
		BelowThreshold: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "below_threshold_total",
			Help:      "Total number of tokens dropped by the market cap gate",
		}),
		DedupHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "dedup_hits_total",
			Help:      "Total number of candidates already marked as seen",
		}, []string{"kind"}),
		NewlySeen: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "newly_seen_total",
			Help:      "Total number of candidates marked as seen for the first time",
		}, []string{"kind"}),
		DedupStoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "store_errors_total",
			Help:      "Total number of dedup store errors by operation",
		}, []string{"op"}),

		AlertsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "sent_total",
			Help:      "Total number of alerts delivered",
		}, []string{"kind"}),
		AlertsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "failed_total",
			Help:      "Total number of alerts that failed to deliver",
		}, []string{"kind"}),

		UpstreamAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "attempts_total",
			Help:      "Total number of upstream call attempts by host",
		}, []string{"host"}),
		UpstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "failures_total",
			Help:      "Total number of upstream calls that exhausted their retry budget",
		}, []string{"host"}),

		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of fresh cache hits by namespace",
		}, []string{"namespace"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses or stale entries by namespace",
		}, []string{"namespace"}),

		WebhookDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Total number of webhook deliveries by result",
		}, []string{"result"}),
	}
}

// Handler returns the HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PollCycle(source, result string) {
	if m == nil {
		return
	}
	m.PollCycles.WithLabelValues(source, result).Inc()
}

func (m *Metrics) CandidateSeen(kind string) {
	if m == nil {
		return
	}
	m.CandidatesSeen.WithLabelValues(kind).Inc()
}

func (m *Metrics) TokenBelowThreshold() {
	if m == nil {
		return
	}
	m.BelowThreshold.Inc()
}

func (m *Metrics) DedupHit(kind string) {
	if m == nil {
		return
	}
	m.DedupHits.WithLabelValues(kind).Inc()
}

func (m *Metrics) MarkedNew(kind string) {
	if m == nil {
		return
	}
	m.NewlySeen.WithLabelValues(kind).Inc()
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.DedupStoreErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) AlertSent(kind string) {
	if m == nil {
		return
	}
	m.AlertsSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) AlertFailed(kind string) {
	if m == nil {
		return
	}
	m.AlertsFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) UpstreamAttempt(host string) {
	if m == nil {
		return
	}
	m.UpstreamAttempts.WithLabelValues(host).Inc()
}

func (m *Metrics) UpstreamFailure(host string) {
	if m == nil {
		return
	}
	m.UpstreamFailures.WithLabelValues(host).Inc()
}

func (m *Metrics) CacheHit(namespace string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(namespace).Inc()
}

func (m *Metrics) CacheMiss(namespace string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(namespace).Inc()
}

func (m *Metrics) WebhookDelivery(result string) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(result).Inc()
}
