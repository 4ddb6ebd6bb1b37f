// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "live_transcript"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Connection metrics
	ConnectionsTotal   prometheus.Counter
	ConnectionsActive  prometheus.Gauge
	ConnectionFailures *prometheus.CounterVec
	ConnectionDuration prometheus.Histogram

	// Message metrics
	MessagesReceived  prometheus.Counter
	MessagesDiscarded prometheus.Counter
	MessagesLate      prometheus.Counter

	// Engine metrics
	EventsApplied     *prometheus.CounterVec
	SegmentsAppended  prometheus.Counter
	PartialsUpserted  prometheus.Counter
	PartialsDiscarded prometheus.Counter
	SessionErrors     prometheus.Counter
	SessionsStarted   prometheus.Counter

	// Forwarding metrics
	ForwardTotal   *prometheus.CounterVec
	ForwardErrors  *prometheus.CounterVec
	ForwardDropped prometheus.Counter
	ForwardLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCStreamsActive  prometheus.Gauge
	GRPCStreamDuration prometheus.Histogram
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Connection metrics
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of stream connection attempts",
		}),
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently open stream connections",
		}),
		ConnectionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_failures_total",
			Help:      "Total number of stream connection failures",
		}, []string{"source"}),
		ConnectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Lifetime of stream connections in seconds",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
		}),

		// Message metrics
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of raw stream messages received",
		}),
		MessagesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_discarded_total",
			Help:      "Total number of messages that matched no known format",
		}),
		MessagesLate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_late_total",
			Help:      "Total number of messages ignored because the connection was torn down",
		}),

		// Engine metrics
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Total number of classified events applied to the engine",
		}, []string{"kind"}),
		SegmentsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_appended_total",
			Help:      "Total number of finalized segments appended to the log",
		}),
		PartialsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partials_upserted_total",
			Help:      "Total number of partial overlay updates",
		}),
		PartialsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partials_discarded_total",
			Help:      "Total number of partial utterances discarded on disconnect",
		}),
		SessionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Total number of error events received from the stream",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of transcript sessions started",
		}),

		// Forwarding metrics
		ForwardTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_total",
			Help:      "Total number of events forwarded to Kafka",
		}, []string{"topic", "event_type"}),
		ForwardErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_errors_total",
			Help:      "Total number of Kafka forward errors",
		}, []string{"topic", "event_type"}),
		ForwardDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_dropped_total",
			Help:      "Total number of events dropped because the forward queue was full",
		}),
		ForwardLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forward_latency_seconds",
			Help:      "Kafka forward latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// gRPC metrics
		GRPCStreamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grpc_streams_active",
			Help:      "Number of currently active gRPC streams",
		}),
		GRPCStreamDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_stream_duration_seconds",
			Help:      "Duration of gRPC streams in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 30, 60, 300, 900},
		}),
	}
}

// RecordConnectStart records a connection attempt.
func (m *Metrics) RecordConnectStart() {
	m.ConnectionsTotal.Inc()
}

// RecordConnectOpen records a connection reaching the open state.
func (m *Metrics) RecordConnectOpen() {
	m.ConnectionsActive.Inc()
}

// RecordConnectEnd records an open connection ending.
func (m *Metrics) RecordConnectEnd(durationSeconds float64) {
	m.ConnectionsActive.Dec()
	m.ConnectionDuration.Observe(durationSeconds)
}

// RecordConnectFailure records a transport failure.
func (m *Metrics) RecordConnectFailure(source string) {
	m.ConnectionFailures.WithLabelValues(source).Inc()
}

// RecordMessage records a raw message and whether it was classified.
func (m *Metrics) RecordMessage(classified bool) {
	m.MessagesReceived.Inc()
	if !classified {
		m.MessagesDiscarded.Inc()
	}
}

// RecordLateMessage records a message dropped after teardown began.
func (m *Metrics) RecordLateMessage() {
	m.MessagesLate.Inc()
}

// RecordEvent records an applied event.
func (m *Metrics) RecordEvent(kind string) {
	m.EventsApplied.WithLabelValues(kind).Inc()
}

// RecordSegmentAppended records a segment entering the log.
func (m *Metrics) RecordSegmentAppended() {
	m.SegmentsAppended.Inc()
}

// RecordPartial records an overlay update.
func (m *Metrics) RecordPartial() {
	m.PartialsUpserted.Inc()
}

// RecordPartialsDiscarded records overlay entries dropped on disconnect.
func (m *Metrics) RecordPartialsDiscarded(n int) {
	m.PartialsDiscarded.Add(float64(n))
}

// RecordSessionError records an error event from the stream.
func (m *Metrics) RecordSessionError() {
	m.SessionErrors.Inc()
}

// RecordSessionStarted records a new session.
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
}

// RecordForward records a Kafka forward attempt.
func (m *Metrics) RecordForward(topic, eventType string, err error, latencySeconds float64) {
	m.ForwardTotal.WithLabelValues(topic, eventType).Inc()
	m.ForwardLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.ForwardErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordForwardDropped records an event dropped by a full forward queue.
func (m *Metrics) RecordForwardDropped() {
	m.ForwardDropped.Inc()
}

// RecordGRPCStreamStart records a gRPC stream starting.
func (m *Metrics) RecordGRPCStreamStart() {
	m.GRPCStreamsActive.Inc()
}

// RecordGRPCStreamEnd records a gRPC stream ending.
func (m *Metrics) RecordGRPCStreamEnd(durationSeconds float64) {
	m.GRPCStreamsActive.Dec()
	m.GRPCStreamDuration.Observe(durationSeconds)
}
