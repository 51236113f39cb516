// Package metrics exposes Prometheus counters for the capture and
// transcription pipeline, served on the dashboard's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// Recording metrics
	RecordingsStarted   prometheus.Counter
	RecordingsCompleted prometheus.Counter
	RecordingsDiscarded *prometheus.CounterVec
	RecordingDuration   prometheus.Histogram
	BlocksDropped       prometheus.Counter

	// Transcription metrics
	TranscriptionRequests *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	EmptyTranscripts      prometheus.Counter

	// Delivery metrics
	PastesDelivered prometheus.Counter
	PasteFailures   prometheus.Counter
}

// New creates the pipeline metrics on a private registry so repeated
// construction in tests cannot collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RecordingsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_recordings_started_total",
			Help: "Total number of recording intervals started",
		}),
		RecordingsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_recordings_completed_total",
			Help: "Total number of recording intervals handed to transcription",
		}),
		RecordingsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_recordings_discarded_total",
			Help: "Total number of recording intervals discarded",
		}, []string{"reason"}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_recording_duration_seconds",
			Help:    "Duration of completed recording intervals",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		BlocksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_capture_blocks_dropped_total",
			Help: "Total audio blocks dropped on capture queue overflow",
		}),

		TranscriptionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_transcription_requests_total",
			Help: "Total transcription requests by outcome",
		}, []string{"status"}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		EmptyTranscripts: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_empty_transcripts_total",
			Help: "Total transcription results that contained no text",
		}),

		PastesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_pastes_delivered_total",
			Help: "Total transcripts delivered to the output sink",
		}),
		PasteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_paste_failures_total",
			Help: "Total failures delivering a transcript",
		}),
	}
}

// Registry returns the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRecordingCompleted records a finished interval that will be sent
// for transcription.
func (m *Metrics) RecordRecordingCompleted(durationSeconds float64, droppedBlocks int64) {
	m.RecordingsCompleted.Inc()
	m.RecordingDuration.Observe(durationSeconds)
	if droppedBlocks > 0 {
		m.BlocksDropped.Add(float64(droppedBlocks))
	}
}

// RecordDiscard records a discarded interval with the reason label.
func (m *Metrics) RecordDiscard(reason string) {
	m.RecordingsDiscarded.WithLabelValues(reason).Inc()
}

// RecordTranscription records one transcription request outcome.
func (m *Metrics) RecordTranscription(status string, durationSeconds float64) {
	m.TranscriptionRequests.WithLabelValues(status).Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}
