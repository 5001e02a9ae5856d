// Package metrics exposes Prometheus collectors for the crawler and dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results
const (
	ResultOK     = "ok"
	ResultEmpty  = "empty"
	ResultFailed = "failed"
)

// Metrics holds the application collectors and their registry
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal     *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	TableRecords   prometheus.Gauge
	CachedMetadata prometheus.Gauge
}

// New creates collectors registered on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hevcstat_fetch_total",
			Help: "Patent page fetches by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hevcstat_fetch_duration_seconds",
			Help:    "Time spent fetching and parsing one patent page.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hevcstat_http_requests_total",
			Help: "Dashboard requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hevcstat_http_request_duration_seconds",
			Help:    "Dashboard request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		TableRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hevcstat_table_records",
			Help: "Patent records loaded into the dashboard.",
		}),
		CachedMetadata: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hevcstat_metadata_entries",
			Help: "Entries in the metadata cache.",
		}),
	}

	m.registry.MustRegister(
		m.FetchTotal,
		m.FetchDuration,
		m.HTTPRequests,
		m.HTTPDuration,
		m.TableRecords,
		m.CachedMetadata,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch outcome
func (m *Metrics) ObserveFetch(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
}
