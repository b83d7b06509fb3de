package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the bridge.
const Namespace = "ponybridge"

// Message kinds used as the "kind" label.
const (
	KindCommand      = "command"
	KindNotification = "notification"
	KindResponse     = "response"
	KindProtocol     = "protocol"
)

// Metrics contains the bridge-level metrics shared by the connection manager
// and the dispatcher.
type Metrics struct {
	MessagesReceived  *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	ConnectionStatus  prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	DispatchErrors    *prometheus.CounterVec
	DispatchDuration  *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all bridge metrics
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "messages_received_total",
				Help:      "Total number of frames received from the gateway",
			},
			[]string{"kind"},
		),

		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "messages_sent_total",
				Help:      "Total number of frames sent to the gateway",
			},
			[]string{"kind"},
		),

		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "messages_dropped_total",
				Help:      "Total number of outgoing frames dropped",
			},
			[]string{"reason"},
		),

		ConnectionStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "connection_status",
				Help:      "Gateway connection status (0=disconnected, 1=connected)",
			},
		),

		ReconnectAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reconnect_attempts_total",
				Help:      "Total number of gateway connection attempts after a failure",
			},
		),

		DispatchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "dispatch_errors_total",
				Help:      "Total number of failed dispatches",
			},
			[]string{"kind"},
		),

		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Handler execution time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.MessagesReceived,
		c.MessagesSent,
		c.MessagesDropped,
		c.ConnectionStatus,
		c.ReconnectAttempts,
		c.DispatchErrors,
		c.DispatchDuration,
	}
}

// RecordReceived increments the received frame counter
func (c *Metrics) RecordReceived(kind string) {
	c.MessagesReceived.WithLabelValues(kind).Inc()
}

// RecordSent increments the sent frame counter
func (c *Metrics) RecordSent(kind string) {
	c.MessagesSent.WithLabelValues(kind).Inc()
}

// RecordDropped increments the dropped frame counter
func (c *Metrics) RecordDropped(reason string) {
	c.MessagesDropped.WithLabelValues(reason).Inc()
}

// RecordConnectionStatus updates the gateway connection gauge
func (c *Metrics) RecordConnectionStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.ConnectionStatus.Set(value)
}

// RecordReconnect increments the reconnection counter
func (c *Metrics) RecordReconnect() {
	c.ReconnectAttempts.Inc()
}

// RecordDispatchError increments the dispatch error counter
func (c *Metrics) RecordDispatchError(kind string) {
	c.DispatchErrors.WithLabelValues(kind).Inc()
}

// RecordDispatchDuration records handler execution time
func (c *Metrics) RecordDispatchDuration(kind string, duration time.Duration) {
	c.DispatchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
