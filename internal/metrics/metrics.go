// Package metrics exposes the Prometheus collectors for resolves and downloads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements resolver.Recorder and download.Recorder. A nil *Metrics records nothing.
type Metrics struct {
	gatherer        prometheus.Gatherer
	resolvesTotal   *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	downloadsTotal  *prometheus.CounterVec
	cacheWriteFails prometheus.Counter
}

// New registers the collectors on a fresh registry, alongside the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		resolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkgrab_resolve_total",
				Help: "Resolve requests by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linkgrab_resolve_duration_seconds",
				Help:    "Time spent resolving a link, including upstream calls",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"service"},
		),
		downloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkgrab_download_total",
				Help: "Proxied downloads by outcome",
			},
			[]string{"outcome"},
		),
		cacheWriteFails: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "linkgrab_link_cache_write_errors_total",
				Help: "Failed link cache writes",
			},
		),
	}

	reg.MustRegister(m.resolvesTotal, m.resolveDuration, m.downloadsTotal, m.cacheWriteFails)
	return m
}

// ObserveResolve counts one resolve and records its latency.
func (m *Metrics) ObserveResolve(service, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if service == "" {
		service = "none"
	}
	m.resolvesTotal.WithLabelValues(service, outcome).Inc()
	m.resolveDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// ObserveDownload counts one proxied download.
func (m *Metrics) ObserveDownload(outcome string) {
	if m == nil {
		return
	}
	m.downloadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCacheWriteError counts a link cache write that failed.
func (m *Metrics) ObserveCacheWriteError() {
	if m == nil {
		return
	}
	m.cacheWriteFails.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
