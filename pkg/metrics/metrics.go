// Package metrics holds the Prometheus collectors for lookups, the content
// cache and pagination sessions. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wikiguide"

// Lookup outcomes.
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

type Metrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	lookups        *prometheus.CounterVec
	activeSessions prometheus.Gauge
	transitions    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Content cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Content cache misses.",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "lookups_total",
			Help:      "Content source lookups by outcome.",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pagination",
			Name:      "active_sessions",
			Help:      "Pagination sessions currently listening for events.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagination",
			Name:      "events_total",
			Help:      "Pagination events handled, by kind.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.cacheHits, m.cacheMisses, m.lookups, m.activeSessions, m.transitions)
	}
	return m
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) Lookup(outcome string) {
	if m != nil {
		m.lookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) SessionEnded() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.transitions.WithLabelValues(kind).Inc()
	}
}
