package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics of a reference extraction run.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Speaker metrics
	SpeakersProcessed *prometheus.CounterVec
	SpeakersSkipped   prometheus.Counter
	SpeakerFailures   *prometheus.CounterVec

	// Candidate metrics
	CandidatesScored prometheus.Counter
	CandidateScore   prometheus.Histogram

	// Reference metrics
	ReferenceDuration prometheus.Histogram

	// Run metrics
	ExtractionDuration prometheus.Histogram
}

// NewMetrics creates all metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SpeakersProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refaudio_speakers_processed_total",
			Help: "Total number of speakers that received a reference, by selection mode",
		}, []string{"mode"}),
		SpeakersSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "refaudio_speakers_skipped_total",
			Help: "Total number of speakers without usable audio",
		}),
		SpeakerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refaudio_speaker_failures_total",
			Help: "Total number of speakers whose reference could not be produced, by stage",
		}, []string{"stage"}),

		CandidatesScored: factory.NewCounter(prometheus.CounterOpts{
			Name: "refaudio_candidates_scored_total",
			Help: "Total number of candidate clips measured and scored",
		}),
		CandidateScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refaudio_candidate_score",
			Help:    "Composite quality score of candidate clips",
			Buckets: prometheus.LinearBuckets(-0.5, 0.1, 16), // -0.5 to 1.0
		}),

		ReferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refaudio_reference_duration_seconds",
			Help:    "Duration of produced reference clips",
			Buckets: prometheus.LinearBuckets(1, 1, 12), // 1s to 12s
		}),

		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refaudio_extraction_duration_seconds",
			Help:    "Wall time of a complete extraction run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}),
	}
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCandidate records one scored candidate
func (m *Metrics) RecordCandidate(score float64) {
	if m == nil {
		return
	}
	m.CandidatesScored.Inc()
	m.CandidateScore.Observe(score)
}

// RecordReference records a produced reference
func (m *Metrics) RecordReference(mode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SpeakersProcessed.WithLabelValues(mode).Inc()
	m.ReferenceDuration.Observe(durationSeconds)
}

// RecordSkipped records a speaker without usable audio
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.SpeakersSkipped.Inc()
}

// RecordFailure records a speaker that failed at the given stage ("select" or "write")
func (m *Metrics) RecordFailure(stage string) {
	if m == nil {
		return
	}
	m.SpeakerFailures.WithLabelValues(stage).Inc()
}

// RecordExtraction records the wall time of a run
func (m *Metrics) RecordExtraction(durationSeconds float64) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(durationSeconds)
}

// WriteTextfile writes the metrics in the Prometheus text format for the
// node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
