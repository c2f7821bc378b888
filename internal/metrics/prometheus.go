// Package metrics provides Prometheus instrumentation for the capture and
// transcription pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcriptor pipeline.
// Each Metrics value carries its own registry so tests can build isolated
// instances.
type Metrics struct {
	Registry *prometheus.Registry

	// Capture metrics
	BuffersConverted prometheus.Counter
	ConversionErrors prometheus.Counter
	SamplesWritten   prometheus.Counter
	SinkErrors       prometheus.Counter

	// Chunk rotation metrics
	ChunksRotated prometheus.Counter
	ChunkDuration prometheus.Histogram

	// Transcription metrics
	TranscriptionsInFlight prometheus.Gauge
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	SequencerPending       prometheus.Gauge
	SequencerStalls        prometheus.Counter

	// Session metrics
	SessionsStarted prometheus.Counter
	SessionDuration prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		BuffersConverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_buffers_converted_total",
			Help: "Total number of capture buffers converted to canonical format",
		}),
		ConversionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_conversion_errors_total",
			Help: "Total number of capture buffers dropped due to format errors",
		}),
		SamplesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_samples_written_total",
			Help: "Total number of canonical samples written to chunk files",
		}),
		SinkErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_sink_errors_total",
			Help: "Total number of failed chunk file writes",
		}),

		ChunksRotated: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_chunks_rotated_total",
			Help: "Total number of chunks closed and handed to transcription",
		}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriptor_chunk_duration_seconds",
			Help:    "Duration of closed chunks in seconds",
			Buckets: prometheus.LinearBuckets(5, 5, 12), // 5s to 60s
		}),

		TranscriptionsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "transcriptor_transcriptions_in_flight",
			Help: "Current number of running transcription jobs",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_transcriptions_success_total",
			Help: "Total number of chunks transcribed successfully",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_transcriptions_failed_total",
			Help: "Total number of chunks whose transcription failed",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriptor_transcription_duration_seconds",
			Help:    "Time spent transcribing one chunk",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),
		SequencerPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "transcriptor_sequencer_pending",
			Help: "Submitted chunks not yet appended to the transcript",
		}),
		SequencerStalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_sequencer_stalls_total",
			Help: "Head-of-line transcription jobs abandoned after the stall timeout",
		}),

		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptor_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriptor_session_duration_seconds",
			Help:    "Duration of completed recording sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(60, 2, 8), // 1 minute to ~2 hours
		}),
	}
}
