package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the call service. A nil *Metrics
// is a valid no-op receiver so tests can run without a registry.
type Metrics struct {
	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket Metrics
	websocketConnections prometheus.Gauge

	// Signaling Metrics
	signalingEventsTotal *prometheus.CounterVec

	// Call Metrics
	callsTotal           *prometheus.CounterVec
	callsActive          prometheus.Gauge
	callsEndedTotal      *prometheus.CounterVec
	callDuration         *prometheus.HistogramVec
	callLogWriteFailures prometheus.Counter

	// Push Notification Metrics
	pushNotificationsTotal  *prometheus.CounterVec
	pushNotificationsFailed *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	return &Metrics{
		// HTTP Request Metrics
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: prometheus.Labels{"service": serviceName},
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),

		// WebSocket Metrics
		websocketConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of live signaling WebSocket connections",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),

		// Signaling Metrics
		signalingEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "signaling_events_total",
				Help:        "Total number of relayed signaling events",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"event"},
		),

		// Call Metrics
		callsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_total",
				Help:        "Total number of initiated calls",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"call_type"},
		),
		callsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of live call sessions",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		callsEndedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_ended_total",
				Help:        "Total number of concluded calls",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"call_type", "status"},
		),
		callDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "call_duration_seconds",
				Help:        "Duration of concluded calls in seconds",
				ConstLabels: prometheus.Labels{"service": serviceName},
				Buckets:     []float64{5, 15, 30, 60, 180, 600, 1800, 3600},
			},
			[]string{"call_type"},
		),
		callLogWriteFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "call_log_write_failures_total",
				Help:        "Total number of failed call log writes",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),

		// Push Notification Metrics
		pushNotificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "push_notifications_total",
				Help:        "Total number of push notifications sent",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"provider"},
		),
		pushNotificationsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "push_notifications_failed_total",
				Help:        "Total number of failed push notifications",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"provider"},
		),
	}
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight request gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight request gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.httpRequestsInFlight.Dec()
}

// IncrementWebSocketConnections increments the live connection gauge
func (m *Metrics) IncrementWebSocketConnections() {
	if m == nil {
		return
	}
	m.websocketConnections.Inc()
}

// DecrementWebSocketConnections decrements the live connection gauge
func (m *Metrics) DecrementWebSocketConnections() {
	if m == nil {
		return
	}
	m.websocketConnections.Dec()
}

// RecordSignalingEvent counts one relayed signaling event by type
func (m *Metrics) RecordSignalingEvent(event string) {
	if m == nil {
		return
	}
	m.signalingEventsTotal.WithLabelValues(event).Inc()
}

// RecordCallInitiated counts one initiated call
func (m *Metrics) RecordCallInitiated(callType string) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(callType).Inc()
}

// SetActiveCalls sets the live session gauge
func (m *Metrics) SetActiveCalls(n int) {
	if m == nil {
		return
	}
	m.callsActive.Set(float64(n))
}

// RecordCallEnded records a concluded call with its duration
func (m *Metrics) RecordCallEnded(callType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.callsEndedTotal.WithLabelValues(callType, status).Inc()
	m.callDuration.WithLabelValues(callType).Observe(duration.Seconds())
}

// RecordCallLogWriteFailure counts one failed call log insert
func (m *Metrics) RecordCallLogWriteFailure() {
	if m == nil {
		return
	}
	m.callLogWriteFailures.Inc()
}

// RecordPushNotification counts one push notification attempt
func (m *Metrics) RecordPushNotification(provider string, failed bool) {
	if m == nil {
		return
	}
	m.pushNotificationsTotal.WithLabelValues(provider).Inc()
	if failed {
		m.pushNotificationsFailed.WithLabelValues(provider).Inc()
	}
}
