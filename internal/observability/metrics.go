package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caption_gateway_active_sessions",
		Help: "Number of active caption stream sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caption_gateway_sessions_total",
		Help: "Total number of caption stream sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "caption_gateway_session_duration_seconds",
		Help:    "Duration of caption stream sessions in seconds",
		Buckets: []float64{5, 15, 60, 300, 900, 1800, 3600},
	})

	// Transcript metrics
	segmentsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caption_gateway_segments_committed_total",
		Help: "Total number of final caption segments committed",
	})

	partialUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caption_gateway_partial_updates_total",
		Help: "Total number of partial transcript updates received",
	})

	// Audio metrics
	audioBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caption_gateway_audio_bytes_sent_total",
		Help: "Total encoded audio bytes forwarded to the backend",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caption_gateway_frames_dropped_total",
		Help: "Audio frames dropped while the stream was not open",
	})

	// Connection metrics
	reconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caption_gateway_reconnect_attempts_total",
		Help: "Total automatic reconnect attempts after abnormal closure",
	})

	pingsAnswered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caption_gateway_pings_answered_total",
		Help: "Keepalive pings answered with a pong",
	})

	// REST API metrics
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caption_gateway_api_requests_total",
		Help: "Total REST requests to the education backend",
	}, []string{"endpoint", "status"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caption_gateway_api_latency_seconds",
		Help:    "REST request latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"endpoint"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caption_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caption_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caption_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// SessionMetrics tracks metrics for a single capture session
type SessionMetrics struct {
	sessionID string
	startTime time.Time
}

// NewSessionMetrics creates a metrics tracker for a session and records its start
func NewSessionMetrics(sessionID string) *SessionMetrics {
	activeSessions.Inc()
	totalSessions.Inc()
	return &SessionMetrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordEnd records the end of the session
func (m *SessionMetrics) RecordEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordSegment records a committed final segment
func (m *SessionMetrics) RecordSegment() {
	segmentsCommitted.Inc()
}

// RecordPartial records a partial transcript update
func (m *SessionMetrics) RecordPartial() {
	partialUpdates.Inc()
}

// RecordAudioBytes records encoded audio bytes sent upstream
func (m *SessionMetrics) RecordAudioBytes(n int64) {
	audioBytesSent.Add(float64(n))
}

// RecordDroppedFrame records a frame dropped outside the open state
func (m *SessionMetrics) RecordDroppedFrame() {
	framesDropped.Inc()
}

// RecordReconnectAttempt records one automatic reconnect attempt
func (m *SessionMetrics) RecordReconnectAttempt() {
	reconnectAttempts.Inc()
}

// RecordPong records a keepalive ping answered
func (m *SessionMetrics) RecordPong() {
	pingsAnswered.Inc()
}

// RecordError records an error
func (m *SessionMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAPIRequest records one REST request against the backend
func RecordAPIRequest(endpoint string, success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	apiRequests.WithLabelValues(endpoint, status).Inc()
	apiLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RecordError records an error outside of a session context
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
