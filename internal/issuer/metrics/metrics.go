package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for issuer resolution.
type Metrics struct {
	// Outbound fetch latencies by kind (did_web, jwks, status_list)
	FetchLatency *prometheus.HistogramVec

	// Resolution outcomes by method and result
	Resolutions *prometheus.CounterVec

	// DID document cache hits and misses
	CacheLookups *prometheus.CounterVec

	// Circuit breaker transitions
	BreakerTransitions *prometheus.CounterVec
}

// New creates a Metrics instance with all issuer resolution metrics registered.
func New() *Metrics {
	return &Metrics{
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgekeeper_issuer_fetch_duration_seconds",
			Help:    "Duration of outbound DID document and key set fetches",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),

		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekeeper_issuer_resolutions_total",
			Help: "Total DID resolutions by method and result",
		}, []string{"method", "result"}),

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekeeper_issuer_cache_lookups_total",
			Help: "DID document cache lookups by outcome",
		}, []string{"outcome"}),

		BreakerTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekeeper_issuer_breaker_transitions_total",
			Help: "Circuit breaker state transitions on the resolver client",
		}, []string{"transition"}),
	}
}

// ObserveFetch records the duration of one outbound fetch.
func (m *Metrics) ObserveFetch(kind string, d time.Duration) {
	if m != nil {
		m.FetchLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// IncrementResolution records a resolution outcome.
func (m *Metrics) IncrementResolution(method, result string) {
	if m != nil {
		m.Resolutions.WithLabelValues(method, result).Inc()
	}
}

// IncrementCache records a cache hit or miss.
func (m *Metrics) IncrementCache(outcome string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(outcome).Inc()
	}
}

// IncrementBreaker records a breaker transition ("opened" or "closed").
func (m *Metrics) IncrementBreaker(transition string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(transition).Inc()
	}
}
