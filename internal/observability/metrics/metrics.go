package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments. All record methods are
// nil-safe so callers never have to guard.
type Metrics struct {
	paymentsInitiated *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	confirmations     *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		paymentsInitiated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_payments_initiated_total",
			Help: "Payments created, by currency.",
		}, []string{"currency"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_webhook_events_total",
			Help: "Webhook deliveries, by provider and result.",
		}, []string{"provider", "result"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_confirmations_total",
			Help: "Confirmation outcomes applied to payment records.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_notifications_total",
			Help: "Notification deliveries, by sink and result.",
		}, []string{"sink", "result"}),
	}
	registry.MustRegister(m.paymentsInitiated, m.webhookEvents, m.confirmations, m.notifications)
	return m
}

func (m *Metrics) RecordPaymentInitiated(currency string) {
	if m == nil {
		return
	}
	m.paymentsInitiated.WithLabelValues(strings.TrimSpace(currency)).Inc()
}

func (m *Metrics) RecordWebhookEvent(provider, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(strings.TrimSpace(provider), strings.TrimSpace(result)).Inc()
}

func (m *Metrics) RecordConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

func (m *Metrics) RecordNotification(sink, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(strings.TrimSpace(sink), strings.TrimSpace(result)).Inc()
}

var Module = fx.Module("observability.metrics",
	fx.Provide(NewRegistry),
	fx.Provide(New),
)
