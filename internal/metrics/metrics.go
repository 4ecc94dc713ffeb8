package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "precise_cache"

// Lookup results.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultUncached = "uncached"
	ResultError    = "error"
)

// Metrics holds the collectors recorded by dispatchers.
type Metrics struct {
	// Lookups counts dispatches by strategy and result.
	Lookups *prometheus.CounterVec
	// LocateSeconds observes how long building a locator took, by strategy.
	LocateSeconds *prometheus.HistogramVec
	// CompileSeconds observes compilations run on a miss.
	CompileSeconds prometheus.Histogram
	// ExcludedGlobals counts globals left out of a fingerprint.
	ExcludedGlobals prometheus.Counter
	// Invalidations counts entries dropped through a dispatcher.
	Invalidations prometheus.Counter
}

// New builds the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Total number of compile dispatches by strategy and result.",
		}, []string{"strategy", "result"}),
		LocateSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "locate_seconds",
			Help:      "Time spent building a cache locator, in seconds.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"strategy"}),
		CompileSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_seconds",
			Help:      "Time spent compiling units on a cache miss, in seconds.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}),
		ExcludedGlobals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "excluded_globals_total",
			Help:      "Total number of referenced globals left out of a fingerprint.",
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Total number of cache entries dropped by dispatchers.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every collector in m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Lookups,
		m.LocateSeconds,
		m.CompileSeconds,
		m.ExcludedGlobals,
		m.Invalidations,
	}
}

// ObserveLookup records one dispatch. Safe on a nil receiver.
func (m *Metrics) ObserveLookup(strategy, result string) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.Lookups.WithLabelValues(strategy, result).Inc()
}

// ObserveLocate records the time spent building a locator. Safe on a nil receiver.
func (m *Metrics) ObserveLocate(strategy string, seconds float64) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.LocateSeconds.WithLabelValues(strategy).Observe(seconds)
}

// ObserveCompile records one compilation. Safe on a nil receiver.
func (m *Metrics) ObserveCompile(seconds float64) {
	if m == nil {
		return
	}
	m.CompileSeconds.Observe(seconds)
}

// AddExcluded records globals left out of a fingerprint. Safe on a nil receiver.
func (m *Metrics) AddExcluded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExcludedGlobals.Add(float64(n))
}

// AddInvalidations records dropped entries. Safe on a nil receiver.
func (m *Metrics) AddInvalidations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Invalidations.Add(float64(n))
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide collectors, registered with the default
// Prometheus registry on first use.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}
