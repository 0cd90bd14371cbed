// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voiceqa"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session lifecycle
	SessionsStarted  prometheus.Counter
	SessionsFinished *prometheus.CounterVec
	SessionsActive   prometheus.Gauge

	// Answer pipeline
	AnswersAccepted  prometheus.Counter
	AnswersRejected  *prometheus.CounterVec
	AnswerConfidence prometheus.Histogram
	AnswerProcessing prometheus.Histogram
	TranscriptsEmpty prometheus.Counter

	// Speech synthesis cascade
	SynthesisRequests *prometheus.CounterVec
	SynthesisLatency  *prometheus.HistogramVec

	// Speech recognition
	TranscriptionErrors  *prometheus.CounterVec
	TranscriptionLatency *prometheus.HistogramVec

	// HTTP surface
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Audio store
	AudioFilesCleaned prometheus.Counter
	AudioCacheHits    prometheus.Counter
	AudioCacheMisses  prometheus.Counter

	// Event publishing
	EventsPublished    *prometheus.CounterVec
	EventPublishErrors *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of call sessions started",
		}),
		SessionsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Total number of call sessions finished",
		}, []string{"status"}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active call sessions",
		}),

		AnswersAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_accepted_total",
			Help:      "Total number of answers that passed validation",
		}),
		AnswersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_rejected_total",
			Help:      "Total number of answers rejected by validation",
		}, []string{"category"}),
		AnswerConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_confidence",
			Help:      "Transcription confidence of accepted answers",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		AnswerProcessing: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_processing_seconds",
			Help:      "Time to transcribe and validate one submitted answer",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		TranscriptsEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_empty_total",
			Help:      "Total number of submissions the recognizer could not transcribe",
		}),

		SynthesisRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "Total number of synthesis attempts per provider",
		}, []string{"provider", "outcome"}),
		SynthesisLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_seconds",
			Help:      "Speech synthesis latency per provider",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),

		TranscriptionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total number of transcription provider errors",
		}, []string{"provider"}),
		TranscriptionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Speech recognition latency per provider",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),

		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "code"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method"}),

		AudioFilesCleaned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_files_cleaned_total",
			Help:      "Total number of expired audio files removed by the cleanup job",
		}),
		AudioCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_hits_total",
			Help:      "Total number of synthesized audio files served from cache",
		}),
		AudioCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_misses_total",
			Help:      "Total number of synthesized audio files freshly generated",
		}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of call lifecycle events published",
		}, []string{"event_type"}),
		EventPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Total number of event publish failures",
		}, []string{"event_type"}),
	}
}

// RecordSessionStarted records a new session starting.
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionFinished records a session reaching a terminal status.
func (m *Metrics) RecordSessionFinished(status string) {
	m.SessionsFinished.WithLabelValues(status).Inc()
	m.SessionsActive.Dec()
}

// RecordAnswerAccepted records an accepted answer with its confidence.
func (m *Metrics) RecordAnswerAccepted(confidence, processingSeconds float64) {
	m.AnswersAccepted.Inc()
	m.AnswerConfidence.Observe(confidence)
	m.AnswerProcessing.Observe(processingSeconds)
}

// RecordAnswerRejected records a validation rejection for a question category.
func (m *Metrics) RecordAnswerRejected(category string, processingSeconds float64) {
	m.AnswersRejected.WithLabelValues(category).Inc()
	m.AnswerProcessing.Observe(processingSeconds)
}

// RecordEmptyTranscript records a submission the recognizer returned nothing for.
func (m *Metrics) RecordEmptyTranscript() {
	m.TranscriptsEmpty.Inc()
}

// RecordSynthesis records one provider attempt in the synthesis cascade.
func (m *Metrics) RecordSynthesis(provider string, err error, latencySeconds float64) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.SynthesisRequests.WithLabelValues(provider, outcome).Inc()
	m.SynthesisLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordTranscription records one recognizer call.
func (m *Metrics) RecordTranscription(provider string, err error, latencySeconds float64) {
	m.TranscriptionLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.TranscriptionErrors.WithLabelValues(provider).Inc()
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method string, code int, latencySeconds float64) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(latencySeconds)
}

// RecordAudioCleanup records files removed by the cleanup job.
func (m *Metrics) RecordAudioCleanup(removed int) {
	m.AudioFilesCleaned.Add(float64(removed))
}

// RecordAudioCache records a cache hit or miss for synthesized audio.
func (m *Metrics) RecordAudioCache(hit bool) {
	if hit {
		m.AudioCacheHits.Inc()
	} else {
		m.AudioCacheMisses.Inc()
	}
}

// RecordEventPublish records a lifecycle event publish attempt.
func (m *Metrics) RecordEventPublish(eventType string, err error) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
	if err != nil {
		m.EventPublishErrors.WithLabelValues(eventType).Inc()
	}
}
