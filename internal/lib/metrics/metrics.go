// Package metrics provides Prometheus metrics for cache instances.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by all caches registered
// with the same registerer. Every series is labelled by cache name.
type Metrics struct {
	Hits      *prometheus.CounterVec
	Misses    *prometheus.CounterVec
	Evictions *prometheus.CounterVec
	Failures  *prometheus.CounterVec
	Resident  *prometheus.GaugeVec
}

// New creates and registers cache metrics under the given namespace.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	labels := []string{"cache"}

	return &Metrics{
		Hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Calls served from the cache without running the function",
		}, labels),
		Misses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Calls that ran the underlying function",
		}, labels),
		Evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries removed by the LFU policy to make room",
		}, labels),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_compute_failures_total",
			Help:      "Misses whose underlying function returned an error or panicked",
		}, labels),
		Resident: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_resident_entries",
			Help:      "Current number of entries held by the cache",
		}, labels),
	}
}

// RecordHit records a call served from the cache.
func (m *Metrics) RecordHit(cache string) {
	m.Hits.WithLabelValues(cache).Inc()
}

// RecordMiss records a call that ran the underlying function.
func (m *Metrics) RecordMiss(cache string) {
	m.Misses.WithLabelValues(cache).Inc()
}

// RecordEviction records an LFU eviction.
func (m *Metrics) RecordEviction(cache string) {
	m.Evictions.WithLabelValues(cache).Inc()
}

// RecordFailure records a failed computation.
func (m *Metrics) RecordFailure(cache string) {
	m.Failures.WithLabelValues(cache).Inc()
}

// UpdateResident updates the resident-entries gauge.
func (m *Metrics) UpdateResident(cache string, n int) {
	m.Resident.WithLabelValues(cache).Set(float64(n))
}
