// Package metrics registers the application's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ticket pipeline and audit
// engine. One instance is created at startup and threaded through wiring.
type Metrics struct {
	TicketsSubmitted     *prometheus.CounterVec
	PublishFailures      prometheus.Counter
	MessagesProcessed    *prometheus.CounterVec
	HandlerDuration      prometheus.Histogram
	NotificationFailures prometheus.Counter
	AuditRecordsWritten  *prometheus.CounterVec
	DLQDepth             prometheus.Gauge
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer. Tests pass a fresh
// registry so repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TicketsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orgdesk_tickets_submitted_total",
			Help: "Tickets accepted by the submission gateway, by ticket type",
		}, []string{"ticket_type"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgdesk_publish_failures_total",
			Help: "Envelope publish attempts that failed and were surfaced to the caller",
		}),
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orgdesk_messages_processed_total",
			Help: "Messages handled by the ticket processor, by result (processed|duplicate|transient_failure|permanent_failure)",
		}, []string{"result"}),
		HandlerDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "orgdesk_handler_duration_seconds",
			Help:    "End-to-end handling time of one message",
			Buckets: prometheus.DefBuckets,
		}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgdesk_notification_failures_total",
			Help: "Notification sends that failed after the ticket was durably stored",
		}),
		AuditRecordsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orgdesk_audit_records_written_total",
			Help: "Audit records written, by action",
		}, []string{"action"}),
		DLQDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "orgdesk_dlq_depth",
			Help: "Messages currently parked on the dead-letter topic; non-zero is an alert condition",
		}),
	}
}
