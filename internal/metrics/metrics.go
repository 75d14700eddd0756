// Package metrics holds the Prometheus collectors for the relay.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
)

const namespace = "relay"

// Metrics groups the relay collectors
type Metrics struct {
	messages        *prometheus.CounterVec
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	truncated       prometheus.Counter
	reg             prometheus.Registerer
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by final outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Upstream completion attempts by provider and result.",
		}, []string{"provider", "result"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_attempt_duration_seconds",
			Help:      "Duration of single upstream completion attempts.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"provider"}),
		truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_truncated_total",
			Help:      "Replies shortened to fit the platform message ceiling.",
		}),
		reg: reg,
	}
	reg.MustRegister(m.messages, m.attempts, m.attemptDuration, m.truncated)
	return m
}

// ObserveMessage counts one processed message
func (m *Metrics) ObserveMessage(kind entity.ErrorKind) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind.String()).Inc()
}

// ObserveAttempt records one upstream attempt
func (m *Metrics) ObserveAttempt(provider, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(provider, result).Inc()
	m.attemptDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveTruncated counts a shortened reply
func (m *Metrics) ObserveTruncated() {
	if m == nil {
		return
	}
	m.truncated.Inc()
}

// TrackUsers exposes the rate limiter table size as a gauge
func (m *Metrics) TrackUsers(count func() int) {
	if m == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ratelimit_tracked_users",
		Help:      "Users currently held in the rate limiter table.",
	}, func() float64 { return float64(count()) }))
}
