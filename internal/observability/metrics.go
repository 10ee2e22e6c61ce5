package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dictation_active_sessions",
		Help: "Number of active dictation sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dictation_sessions_total",
		Help: "Total number of dictation sessions started",
	})

	// Capture metrics
	chunksCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dictation_chunks_captured_total",
		Help: "Total number of audio chunks produced by capture sources",
	})

	audioBytesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dictation_audio_bytes_total",
		Help: "Total audio bytes captured",
	})

	// STT metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictation_stt_requests_total",
		Help: "Total number of STT requests",
	}, []string{"status"}) // ok, unrecognized, transport_error

	sttLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dictation_stt_latency_seconds",
		Help:    "STT processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Interpreter metrics
	reorderSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dictation_reorder_skips_total",
		Help: "Total number of sequence slots skipped after the head-of-line timeout",
	})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictation_commands_total",
		Help: "Total number of voice commands executed",
	}, []string{"action"})

	literalInsertions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dictation_literal_insertions_total",
		Help: "Total number of literal text insertions applied to the document",
	})

	documentLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dictation_document_length_chars",
		Help: "Current document buffer length in characters",
	})

	// AI transform metrics
	aiTransforms = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictation_ai_transforms_total",
		Help: "Total number of AI transform requests",
	}, []string{"kind", "status"})

	aiTransformLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dictation_ai_transform_latency_seconds",
		Help:    "AI transform latency in seconds",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dictation_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictation_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordSessionStart records the start of a dictation session
func RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a dictation session
func RecordSessionEnd() {
	activeSessions.Dec()
}

// RecordChunkCaptured records one captured audio chunk
func RecordChunkCaptured(bytes int) {
	chunksCaptured.Inc()
	audioBytesCaptured.Add(float64(bytes))
}

// RecordSTTRequest records one completed STT request with its terminal status
func RecordSTTRequest(status string, latencySeconds float64) {
	sttRequests.WithLabelValues(status).Inc()
	sttLatency.Observe(latencySeconds)
}

// RecordReorderSkip records a sequence slot abandoned after the bounded wait
func RecordReorderSkip() {
	reorderSkips.Inc()
}

// RecordCommand records an executed voice command
func RecordCommand(action string) {
	commandsExecuted.WithLabelValues(action).Inc()
}

// RecordLiteralInsertion records a literal text insertion and the new buffer size
func RecordLiteralInsertion(newLength int) {
	literalInsertions.Inc()
	documentLength.Set(float64(newLength))
}

// RecordDocumentLength updates the document length gauge
func RecordDocumentLength(length int) {
	documentLength.Set(float64(length))
}

// RecordAITransform records one AI transform request
func RecordAITransform(kind, status string, latencySeconds float64) {
	aiTransforms.WithLabelValues(kind, status).Inc()
	aiTransformLatency.Observe(latencySeconds)
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
