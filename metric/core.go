package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the platform-level metrics shared by every plugin built
// on this SDK. Domain-specific metrics are registered separately through the
// MetricsRegistry.
type Metrics struct {
	ConnectionStatus   prometheus.Gauge
	MessagesReceived   *prometheus.CounterVec
	MessagesDispatched *prometheus.CounterVec
	MessagesSent       *prometheus.CounterVec
	HandlerDuration    *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	StatesTracked      prometheus.Gauge
	SuppressedUpdates  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "surfdeck",
				Subsystem: "connection",
				Name:      "status",
				Help:      "Connection status (0=disconnected, 1=connecting, 2=paired, 3=stopping)",
			},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfdeck",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of messages received from the host",
			},
			[]string{"type"},
		),

		MessagesDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfdeck",
				Subsystem: "messages",
				Name:      "dispatched_total",
				Help:      "Total number of messages dispatched to handlers",
			},
			[]string{"type", "status"},
		),

		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfdeck",
				Subsystem: "messages",
				Name:      "sent_total",
				Help:      "Total number of messages sent to the host",
			},
			[]string{"type"},
		),

		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "surfdeck",
				Subsystem: "handlers",
				Name:      "duration_seconds",
				Help:      "Handler execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfdeck",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by class",
			},
			[]string{"class"},
		),

		StatesTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "surfdeck",
				Subsystem: "states",
				Name:      "tracked",
				Help:      "Number of states currently tracked",
			},
		),

		SuppressedUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "surfdeck",
				Subsystem: "states",
				Name:      "suppressed_total",
				Help:      "Total number of state updates suppressed as unchanged",
			},
		),
	}
}

// RecordConnectionStatus updates the connection status gauge
func (c *Metrics) RecordConnectionStatus(status int) {
	c.ConnectionStatus.Set(float64(status))
}

// RecordMessageReceived increments the received message counter
func (c *Metrics) RecordMessageReceived(messageType string) {
	c.MessagesReceived.WithLabelValues(messageType).Inc()
}

// RecordMessageDispatched increments the dispatched message counter
func (c *Metrics) RecordMessageDispatched(messageType, status string) {
	c.MessagesDispatched.WithLabelValues(messageType, status).Inc()
}

// RecordMessageSent increments the sent message counter
func (c *Metrics) RecordMessageSent(messageType string) {
	c.MessagesSent.WithLabelValues(messageType).Inc()
}

// RecordHandlerDuration records handler execution time
func (c *Metrics) RecordHandlerDuration(messageType string, duration time.Duration) {
	c.HandlerDuration.WithLabelValues(messageType).Observe(duration.Seconds())
}

// RecordError increments the error counter for a class
func (c *Metrics) RecordError(class string) {
	c.ErrorsTotal.WithLabelValues(class).Inc()
}

// RecordStatesTracked updates the tracked-states gauge
func (c *Metrics) RecordStatesTracked(count int) {
	c.StatesTracked.Set(float64(count))
}

// RecordSuppressedUpdate increments the suppressed-update counter
func (c *Metrics) RecordSuppressedUpdate() {
	c.SuppressedUpdates.Inc()
}
