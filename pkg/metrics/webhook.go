package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records payment notification processing per provider.
type WebhookMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// Webhook outcome labels.
const (
	OutcomePaid      = "paid"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_webhook_duration_seconds",
		Help:    "Duration of payment webhook processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_outcomes",
		Help: "Payment webhook notifications by provider and outcome.",
	}, []string{"provider", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &WebhookMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// ObserveDuration records processing time for the provider.
func (w *WebhookMetrics) ObserveDuration(provider string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

// IncOutcome counts one processed notification for the provider.
func (w *WebhookMetrics) IncOutcome(provider, outcome string) {
	if w == nil || w.outcomes == nil {
		return
	}
	w.outcomes.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}
