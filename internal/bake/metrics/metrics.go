package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for badge baking.
type Metrics struct {
	// Bake and unbake operations by image format and result
	Operations *prometheus.CounterVec

	// Size of embedded credential payloads in bytes
	PayloadSize prometheus.Histogram
}

// New creates a Metrics instance with all baking metrics registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekeeper_bake_operations_total",
			Help: "Badge bake and unbake operations by format and result",
		}, []string{"op", "format", "result"}),

		PayloadSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "badgekeeper_bake_payload_bytes",
			Help:    "Size of credential payloads embedded into badge images",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}),
	}
}

// IncrementOperation records one bake or unbake outcome.
func (m *Metrics) IncrementOperation(op, format, result string) {
	if m != nil {
		m.Operations.WithLabelValues(op, format, result).Inc()
	}
}

// ObservePayload records the embedded payload size.
func (m *Metrics) ObservePayload(size int) {
	if m != nil {
		m.PayloadSize.Observe(float64(size))
	}
}
