// Package metrics exposes the Prometheus collectors shared by both tiers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "minutes"

var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}

// Recorder owns a private registry so tests can build as many as they like.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	generationLatency  prometheus.Histogram
	generationFailures prometheus.Counter

	cacheLookups     *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
}

// New builds a recorder whose series carry the given subsystem (tier) name.
func New(subsystem string) *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	r.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   latencyBuckets,
		},
		[]string{"method", "route"},
	)
	r.generationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generation_duration_seconds",
			Help:      "Beam search latency in seconds",
			Buckets:   latencyBuckets,
		},
	)
	r.generationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generation_failures_total",
			Help:      "Total number of failed generations",
		},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "summary_cache_lookups_total",
			Help:      "Summary cache lookups by result",
		},
		[]string{"result"},
	)
	r.upstreamFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_failures_total",
			Help:      "Failed calls to the inference service by kind",
		},
		[]string{"kind"},
	)

	r.registry.MustRegister(
		r.httpRequests,
		r.httpLatency,
		r.generationLatency,
		r.generationFailures,
		r.cacheLookups,
		r.upstreamFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveGeneration records one engine invocation.
func (r *Recorder) ObserveGeneration(elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.generationLatency.Observe(elapsed.Seconds())
	if err != nil {
		r.generationFailures.Inc()
	}
}

// ObserveCache records a summary cache lookup.
func (r *Recorder) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveUpstreamFailure records a failed forward to the inference service.
func (r *Recorder) ObserveUpstreamFailure(kind string) {
	if r == nil {
		return
	}
	r.upstreamFailures.WithLabelValues(kind).Inc()
}
