package repositorycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cache outcomes per family. A nil *Metrics records nothing.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewMetrics registers the repository cache counters on reg. Use one
// instance per registry and share it between repositories.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "household_store",
			Subsystem: "repository_cache",
			Name:      name,
			Help:      help,
		}, []string{"family"})
	}

	return &Metrics{
		hits:          counter("hits_total", "Cached reads answered from the cache."),
		misses:        counter("misses_total", "Cached reads that ran their loader."),
		fallbacks:     counter("fallbacks_total", "Cached reads that bypassed a faulty cache."),
		invalidations: counter("invalidations_total", "Generations superseded by writes."),
	}
}

func (m *Metrics) hit(family string) {
	if m != nil {
		m.hits.WithLabelValues(family).Inc()
	}
}

func (m *Metrics) miss(family string) {
	if m != nil {
		m.misses.WithLabelValues(family).Inc()
	}
}

func (m *Metrics) fallback(family string) {
	if m != nil {
		m.fallbacks.WithLabelValues(family).Inc()
	}
}

// Invalidated counts one superseded generation of family.
func (m *Metrics) Invalidated(family string) {
	if m != nil {
		m.invalidations.WithLabelValues(family).Inc()
	}
}
