package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache traffic per cache name. A nil *Metrics records nothing.
type Metrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg when reg is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache reads that returned a live entry.",
		}, []string{"cache"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache reads that found no live entry.",
		}, []string{"cache"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries removed because they outlived their TTL.",
		}, []string{"cache"}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.evictions)
	}
	return m
}

func (m *Metrics) hit(name string) {
	if m != nil {
		m.hits.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) miss(name string) {
	if m != nil {
		m.misses.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) evict(name string, n int) {
	if m != nil && n > 0 {
		m.evictions.WithLabelValues(name).Add(float64(n))
	}
}
