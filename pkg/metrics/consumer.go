package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Consumer message outcomes.
const (
	OutcomeHandled   = "handled"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
	OutcomeRetried   = "retried"
	OutcomeFaulted   = "faulted"
)

// ConsumerMetrics tracks Pub/Sub message handling per consumer.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consumer_messages_total",
		Help:      "Messages received by event consumers, by outcome.",
	}, []string{"consumer", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "consumer_handle_duration_seconds",
		Help:      "Time spent handling one message.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"consumer"})
	reg.MustRegister(messages, duration)
	return &ConsumerMetrics{messages: messages, duration: duration}
}

func (m *ConsumerMetrics) Observe(consumer, outcome string, elapsed time.Duration) {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(consumer), normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(normalizeLabel(consumer)).Observe(elapsed.Seconds())
}
