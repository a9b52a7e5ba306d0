package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	tierMemory     = "memory"
	tierPersistent = "persistent"

	missAbsent  = "absent"
	missExpired = "expired"
)

// Metrics are the prometheus collectors updated by a Manager. A nil *Metrics
// records nothing.
type Metrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	errors    *prometheus.CounterVec
	writes    prometheus.Counter
}

// NewMetrics creates the cache collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objectcache_hits_total",
				Help: "Fresh entries returned, by the tier that served them",
			},
			[]string{"tier"},
		),
		misses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objectcache_misses_total",
				Help: "Lookups that returned nothing, by reason",
			},
			[]string{"reason"},
		),
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objectcache_rush_refreshes_total",
				Help: "Background re-insertions of expired entries, by result",
			},
			[]string{"result"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objectcache_errors_total",
				Help: "Failed cache operations, by operation",
			},
			[]string{"operation"},
		),
		writes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "objectcache_writes_total",
				Help: "Entries written to the persistent tier",
			},
		),
	}
}

func (m *Metrics) hit(tier string) {
	if m != nil {
		m.hits.WithLabelValues(tier).Inc()
	}
}

func (m *Metrics) miss(reason string) {
	if m != nil {
		m.misses.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) refresh(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) failure(op string) {
	if m != nil {
		m.errors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) write() {
	if m != nil {
		m.writes.Inc()
	}
}
