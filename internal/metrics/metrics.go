// Package metrics provides Prometheus metrics for the polling cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// tableLabels identify a cached table.
var tableLabels = []string{"mib", "table"}

// Metrics holds the cache and polling metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	CacheHits    *prometheus.CounterVec
	CacheMisses  *prometheus.CounterVec
	LivePolls    *prometheus.CounterVec
	PollErrors   *prometheus.CounterVec
	PollDuration *prometheus.HistogramVec
	RowsResolved *prometheus.CounterVec
}

// New creates and registers the metric set under the given namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Table requests served from the cache",
		}, tableLabels),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Table requests that required a live poll",
		}, tableLabels),
		LivePolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_polls_total",
			Help:      "Live SNMP table polls issued",
		}, tableLabels),
		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Live SNMP table polls that failed",
		}, tableLabels),
		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of live SNMP table polls",
			Buckets:   prometheus.DefBuckets,
		}, tableLabels),
		RowsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_resolved_total",
			Help:      "Table rows resolved against the MIB schema",
		}, tableLabels),
	}

	m.registry.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.LivePolls,
		m.PollErrors,
		m.PollDuration,
		m.RowsResolved,
	)

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
