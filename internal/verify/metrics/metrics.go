package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for credential verification.
type Metrics struct {
	// Verification outcomes by envelope kind and status
	Verifications *prometheus.CounterVec

	// End-to-end verification latency by envelope kind
	Duration *prometheus.HistogramVec

	// Individual check failures by check name
	CheckFailures *prometheus.CounterVec
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekeeper_verifications_total",
			Help: "Total credential verifications by envelope kind and outcome",
		}, []string{"envelope", "status"}),

		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgekeeper_verification_duration_seconds",
			Help:    "End-to-end credential verification duration",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"envelope"}),

		CheckFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekeeper_verification_check_failures_total",
			Help: "Failed verification checks by check name",
		}, []string{"check"}),
	}
}

// ObserveVerification records a completed verification run.
func (m *Metrics) ObserveVerification(envelope, status string, d time.Duration) {
	if m != nil {
		m.Verifications.WithLabelValues(envelope, status).Inc()
		m.Duration.WithLabelValues(envelope).Observe(d.Seconds())
	}
}

// IncrementCheckFailure records one failed check.
func (m *Metrics) IncrementCheckFailure(check string) {
	if m != nil {
		m.CheckFailures.WithLabelValues(check).Inc()
	}
}
