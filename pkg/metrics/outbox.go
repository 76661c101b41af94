package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts what the publisher does with each outbox row.
type OutboxMetrics struct {
	rows *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "rows_total",
		Help:      "Outbox rows handled by the publisher, by event type and result (published, retry, dead_lettered).",
	}, []string{"event_type", "result"})
	reg.MustRegister(rows)
	return &OutboxMetrics{rows: rows}
}

func (m *OutboxMetrics) IncRow(eventType, result string) {
	if m == nil || m.rows == nil {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
