package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_relay_active_sessions",
		Help: "Number of active client sessions",
	})

	sessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_relay_sessions_total",
		Help: "Total number of client sessions handled",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_relay_session_duration_seconds",
		Help:    "Duration of client sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Transcription metrics
	transcriptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_transcripts_total",
		Help: "Total number of transcript events relayed",
	}, []string{"kind"}) // kind: "interim" or "final"

	streamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_transcription_streams_total",
		Help: "Total number of transcription streams opened",
	}, []string{"status"})

	// Pipeline stage metrics
	generationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_generation_requests_total",
		Help: "Total number of answer generation calls",
	}, []string{"status"})

	generationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_relay_generation_latency_seconds",
		Help:    "Answer generation latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_synthesis_requests_total",
		Help: "Total number of speech synthesis calls",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_relay_synthesis_latency_seconds",
		Help:    "Speech synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_pipeline_runs_total",
		Help: "Total number of generate-then-synthesize pipeline runs",
	}, []string{"status"})

	pipelineLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_relay_pipeline_latency_seconds",
		Help:    "End-to-end pipeline run latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 20.0},
	})

	// Client transport metrics
	clientEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_client_events_total",
		Help: "Total number of outbound client events",
	}, []string{"kind"}) // kind: "transcript", "audio", "error"

	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Signed URL endpoint metrics
	signedURLRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_signed_url_requests_total",
		Help: "Total number of signed URL requests",
	}, []string{"status"})
)

// SessionMetrics tracks metrics for a single client session. Pipeline stage
// timings are passed in per run because runs may overlap within one session.
type SessionMetrics struct {
	sessionID string
	startTime time.Time
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID string) *SessionMetrics {
	return &SessionMetrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session
func (m *SessionMetrics) RecordSessionStart() {
	activeSessions.Inc()
	sessionsTotal.Inc()
}

// RecordSessionEnd records the end of a session
func (m *SessionMetrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordStreamOpen records a transcription stream open attempt
func (m *SessionMetrics) RecordStreamOpen(success bool) {
	streamsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordTranscript records one relayed transcript event
func (m *SessionMetrics) RecordTranscript(isFinal bool) {
	kind := "interim"
	if isFinal {
		kind = "final"
	}
	transcriptsTotal.WithLabelValues(kind).Inc()
}

// RecordGeneration records one answer generation call
func (m *SessionMetrics) RecordGeneration(elapsed time.Duration, success bool) {
	generationLatency.Observe(elapsed.Seconds())
	generationRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordSynthesis records one speech synthesis call
func (m *SessionMetrics) RecordSynthesis(elapsed time.Duration, success bool) {
	synthesisLatency.Observe(elapsed.Seconds())
	synthesisRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordPipelineRun records one completed pipeline run
func (m *SessionMetrics) RecordPipelineRun(elapsed time.Duration, success bool) {
	pipelineLatency.Observe(elapsed.Seconds())
	pipelineRuns.WithLabelValues(statusLabel(success)).Inc()
}

// RecordClientEvent records one outbound client event by kind
func (m *SessionMetrics) RecordClientEvent(kind string) {
	clientEvents.WithLabelValues(kind).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *SessionMetrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordError records an error
func (m *SessionMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordSignedURLRequest records one signed URL request outcome
func RecordSignedURLRequest(success bool) {
	signedURLRequests.WithLabelValues(statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
