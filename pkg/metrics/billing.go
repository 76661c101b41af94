package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BillingMetrics counts webhook outcomes and the side effects they trigger.
type BillingMetrics struct {
	webhooks    *prometheus.CounterVec
	captures    *prometheus.CounterVec
	activations *prometheus.CounterVec
}

func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "razorpay",
		Name:      "webhooks_total",
		Help:      "Razorpay webhook deliveries by event and outcome.",
	}, []string{"event", "outcome"})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "razorpay",
		Name:      "captures_total",
		Help:      "Capture attempts by outcome.",
	}, []string{"outcome"})
	activations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "subscriptions",
		Name:      "activations_total",
		Help:      "Subscription activations by plan family and outcome.",
	}, []string{"plan_type", "outcome"})
	reg.MustRegister(webhooks, captures, activations)
	return &BillingMetrics{webhooks: webhooks, captures: captures, activations: activations}
}

func (m *BillingMetrics) IncWebhook(event, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

func (m *BillingMetrics) IncCapture(outcome string) {
	if m == nil || m.captures == nil {
		return
	}
	m.captures.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *BillingMetrics) IncActivation(planType, outcome string) {
	if m == nil || m.activations == nil {
		return
	}
	m.activations.WithLabelValues(normalizeLabel(planType), normalizeLabel(outcome)).Inc()
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
