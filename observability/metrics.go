package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chat_relay"

// Delivery outcomes used as label values.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// Metrics groups every collector exposed on /metrics.
type Metrics struct {
	ActiveConnections    prometheus.Gauge
	SessionsSuperseded   prometheus.Counter
	MessagesPersisted    prometheus.Counter
	Deliveries           *prometheus.CounterVec
	RoomsCreated         prometheus.Counter
	NotificationFailures prometheus.Counter
	RejectedEvents       *prometheus.CounterVec
	ProcessRSSBytes      prometheus.Gauge
	ProcessCPUPercent    prometheus.Gauge
	WorkerRestarts       *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg.
// Tests pass a fresh prometheus.NewRegistry() to stay isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of authenticated realtime connections.",
		}),
		SessionsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_superseded_total",
			Help:      "Presence entries replaced by a newer connection of the same user.",
		}),
		MessagesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_persisted_total",
			Help:      "Messages durably stored.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Events handed to live connections, by outcome.",
		}, []string{"event", "outcome"}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Chat rooms committed to storage.",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Room creation notices that could not be pushed to an online invitee.",
		}),
		RejectedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_events_total",
			Help:      "Inbound realtime events rejected, by reason.",
		}, []string{"reason"}),
		ProcessRSSBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident set size sampled from the OS.",
		}),
		ProcessCPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the process sampled from the OS.",
		}),
		WorkerRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_restarts_total",
			Help:      "Background workers restarted by the supervisor, by worker and cause.",
		}, []string{"worker", "cause"}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.SessionsSuperseded,
		m.MessagesPersisted,
		m.Deliveries,
		m.RoomsCreated,
		m.NotificationFailures,
		m.RejectedEvents,
		m.ProcessRSSBytes,
		m.ProcessCPUPercent,
		m.WorkerRestarts,
	)
	return m
}

// NewTestMetrics returns metrics bound to a private registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
