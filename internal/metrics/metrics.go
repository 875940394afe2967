// Package metrics exposes Prometheus collectors for guide ingestion.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

const namespace = "epgrab"

// Metrics holds the collectors and the registry they are registered with.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	fetches          *prometheus.CounterVec
	programmes       *prometheus.CounterVec
	skipped          *prometheus.CounterVec
	channels         *prometheus.GaugeVec
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	lastRunTimestamp prometheus.Gauge
	guideCache       *prometheus.CounterVec
	httpRequests     *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_fetches_total",
			Help:      "Schedule fetches per channel and day, by outcome.",
		}, []string{"source", "status"}),
		programmes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "programmes_total",
			Help:      "Normalized programme records collected.",
		}, []string{"source"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "programmes_skipped_total",
			Help:      "Raw schedule entries dropped as malformed.",
		}, []string{"source"}),
		channels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Channels in the last listing, by stage.",
		}, []string{"source", "stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingest runs, by final status.",
		}, []string{"source", "status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Wall time of ingest runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last ingest run finished.",
		}),
		guideCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guide_cache_requests_total",
			Help:      "Rendered guide cache lookups, by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetches,
		m.programmes,
		m.skipped,
		m.channels,
		m.runs,
		m.runDuration,
		m.lastRunTimestamp,
		m.guideCache,
		m.httpRequests,
	)
	return m
}

// Registry returns the registry the collectors are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the exposition handler for the registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDay records one schedule fetch
func (m *Metrics) ObserveDay(source string, res provider.DayResult) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(source, res.Status.String()).Inc()
	m.programmes.WithLabelValues(source).Add(float64(len(res.Programmes)))
	m.skipped.WithLabelValues(source).Add(float64(res.Skipped))
}

// SetChannels records a channel count for a stage ("listed" or "selected")
func (m *Metrics) SetChannels(source, stage string, n int) {
	if m == nil {
		return
	}
	m.channels.WithLabelValues(source, stage).Set(float64(n))
}

// ObserveRun records a finished ingest run
func (m *Metrics) ObserveRun(source, status string, seconds float64, finishedUnix float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(source, status).Inc()
	m.runDuration.Observe(seconds)
	m.lastRunTimestamp.Set(finishedUnix)
}

// ObserveCache records a guide cache lookup ("hit", "miss" or "error")
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.guideCache.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served HTTP request
func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
