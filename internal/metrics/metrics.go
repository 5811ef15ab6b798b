// Package metrics exposes Prometheus collectors for the event receiver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "inputrelay").
	Namespace string

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the receiver collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	frames          *prometheus.CounterVec
	skipped         *prometheus.CounterVec
	connectAttempts prometheus.Counter
	connectFailures prometheus.Counter
	disconnects     prometheus.Counter
	connected       prometheus.Gauge
	sinkErrors      *prometheus.CounterVec
}

// New registers the receiver collectors.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "inputrelay",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "frames_total",
			Help:      "Total number of frames received and dispatched, by frame type",
		}, []string{"type"}),

		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "frames_skipped_total",
			Help:      "Total number of frames discarded without reaching a sink",
		}, []string{"reason"}),

		connectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "connect_attempts_total",
			Help:      "Total number of connection attempts to the sender",
		}),

		connectFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "connect_failures_total",
			Help:      "Total number of failed connection attempts",
		}),

		disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "disconnects_total",
			Help:      "Total number of lost sender connections",
		}),

		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "connected",
			Help:      "1 while connected to the sender",
		}),

		sinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "sink_errors_total",
			Help:      "Total number of failed sink operations",
		}, []string{"op"}),
	}
}

// Frame counts a dispatched frame.
func (m *Metrics) Frame(frameType string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(frameType).Inc()
}

// Skipped counts a discarded frame.
func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

// ConnectAttempt counts a connection attempt and its outcome.
func (m *Metrics) ConnectAttempt(ok bool) {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
	if ok {
		m.connected.Set(1)
	} else {
		m.connectFailures.Inc()
	}
}

// Disconnected records a lost connection.
func (m *Metrics) Disconnected() {
	if m == nil {
		return
	}
	m.disconnects.Inc()
	m.connected.Set(0)
}

// SinkError counts a failed sink operation.
func (m *Metrics) SinkError(op string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(op).Inc()
}
