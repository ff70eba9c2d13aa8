package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox delivery outcomes.
const (
	DeliveryPublished    = "published"
	DeliveryRetried      = "retried"
	DeliveryDeadLettered = "dead_lettered"
)

// OutboxMetrics tracks the outbox publisher's per-event delivery outcomes.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	batchSize  prometheus.Histogram
}

// NewOutboxMetrics registers the publisher metrics. A nil registerer yields a no-op.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox events handled by the publisher, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_events",
			Help:      "Events claimed per non-empty publisher batch.",
			Buckets:   prometheus.LinearBuckets(1, 10, 10),
		}),
	}
	reg.MustRegister(m.deliveries, m.batchSize)
	return m
}

// IncDelivery counts one event outcome.
func (m *OutboxMetrics) IncDelivery(eventType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveBatch records how many events a batch claimed.
func (m *OutboxMetrics) ObserveBatch(n int) {
	if m == nil || m.batchSize == nil || n == 0 {
		return
	}
	m.batchSize.Observe(float64(n))
}
