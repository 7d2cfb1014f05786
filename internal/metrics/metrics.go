// Package metrics exposes Prometheus counters for reconciliation cycles.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes recorded in cycles_total.
const (
	StatusOK      = "ok"
	StatusNoNoisy = "no_noisy_data"
	StatusError   = "error"
)

// Reasons recorded in observations_dropped_total.
const (
	ReasonInvalid  = "invalid"
	ReasonUnmapped = "unmapped"
	ReasonParse    = "parse"
)

var defaultBuckets = []float64{1, 5, 15, 30, 60, 120, 300}

// Manager owns a registry and the reconciliation metrics registered on it.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	cycles         *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	persisted      *prometheus.CounterVec
	cycleDurations *prometheus.HistogramVec
}

// NewManager creates a Manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "odds",
		buckets:   defaultBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)
	m.cycles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cycles_total",
		Help:      "Reconciliation cycles by competition and outcome.",
	}, []string{"competition", "status"})
	m.resolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "resolutions_total",
		Help:      "Noisy match names resolved, by resolution kind.",
	}, []string{"competition", "kind"})
	m.dropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "observations_dropped_total",
		Help:      "Noisy observations discarded before persistence.",
	}, []string{"competition", "reason"})
	m.persisted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "matches_persisted_total",
		Help:      "Reconciled matches written to the store.",
	}, []string{"competition"})
	m.cycleDurations = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one reconciliation cycle.",
		Buckets:   m.buckets,
	}, []string{"competition"})

	return m
}

// RecordCycle counts a finished cycle and observes its duration.
func (m *Manager) RecordCycle(competition, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(competition, status).Inc()
	m.cycleDurations.WithLabelValues(competition).Observe(d.Seconds())
}

// RecordResolutions adds n resolutions of the given kind.
func (m *Manager) RecordResolutions(competition, kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.resolutions.WithLabelValues(competition, kind).Add(float64(n))
}

// RecordDropped adds n discarded observations.
func (m *Manager) RecordDropped(competition, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dropped.WithLabelValues(competition, reason).Add(float64(n))
}

// RecordPersisted adds n stored matches.
func (m *Manager) RecordPersisted(competition string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.persisted.WithLabelValues(competition).Add(float64(n))
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
