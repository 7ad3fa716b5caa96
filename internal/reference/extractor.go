package reference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skypro1111/refaudio/internal/audio"
	"github.com/skypro1111/refaudio/internal/metrics"
	"github.com/skypro1111/refaudio/internal/quality"
	"github.com/skypro1111/refaudio/internal/transcript"
)

// Config holds the reference bounds and run parameters
type Config struct {
	MinDuration float64 // seconds
	MaxDuration float64 // seconds
	Concurrency int     // speakers processed in parallel
}

// ExtractorConfig contains configuration for the extractor
type ExtractorConfig struct {
	Reference Config
	Analyzer  quality.AnalyzerConfig
	Scorer    quality.ScorerConfig
}

// Extractor selects and writes one reference clip per speaker
type Extractor struct {
	config         Config
	analyzerConfig quality.AnalyzerConfig
	scorer         *quality.Scorer
	selector       *Selector
	writer         Writer
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// Report is the outcome of one extraction run
type Report struct {
	RunID      string
	SampleRate int
	References map[string]*Artifact // speaker -> written reference
	Failures   map[string]error     // speaker -> why no reference was produced
	Skipped    []string             // speakers without usable audio
}

// FailedSpeakers returns the speakers with failures, sorted
func (r *Report) FailedSpeakers() []string {
	speakers := make([]string, 0, len(r.Failures))
	for spk := range r.Failures {
		speakers = append(speakers, spk)
	}
	sort.Strings(speakers)
	return speakers
}

// Err joins the per-speaker failures, or returns nil when every speaker succeeded
func (r *Report) Err() error {
	var errs []error
	for _, spk := range r.FailedSpeakers() {
		errs = append(errs, fmt.Errorf("speaker %s: %w", spk, r.Failures[spk]))
	}
	return errors.Join(errs...)
}

// SpeakerAnalysis lists the scored candidates of one speaker and the
// selection that would be made from them
type SpeakerAnalysis struct {
	Speaker    string
	Candidates []Scored // best first
	Selection  Selection
}

// speakerResult is the per-speaker output collected before merging
type speakerResult struct {
	artifact *Artifact
	err      error
	skipped  bool
}

// NewExtractor creates an extractor writing through writer
func NewExtractor(logger *slog.Logger, config ExtractorConfig, writer Writer, m *metrics.Metrics) (*Extractor, error) {
	if err := config.Analyzer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analyzer config: %w", err)
	}

	scorer, err := quality.NewScorer(config.Scorer)
	if err != nil {
		return nil, fmt.Errorf("invalid scorer config: %w", err)
	}

	selector, err := NewSelector(config.Reference.MinDuration, config.Reference.MaxDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid reference bounds: %w", err)
	}

	if writer == nil {
		return nil, fmt.Errorf("writer cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	cfg := config.Reference
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &Extractor{
		config:         cfg,
		analyzerConfig: config.Analyzer,
		scorer:         scorer,
		selector:       selector,
		writer:         writer,
		metrics:        m,
		logger:         logger,
	}, nil
}

// Run selects, writes and describes one reference per speaker.
//
// An invalid source buffer is fatal. A failure for one speaker is recorded
// in the report and does not affect the others. Cancelling ctx stops
// scheduling further speakers and returns the context error.
func (e *Extractor) Run(ctx context.Context, segments []transcript.Segment, buf *audio.Buffer) (*Report, error) {
	started := time.Now()

	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("source audio unusable: %w", err)
	}

	analyzer, err := quality.NewAnalyzer(e.analyzerConfig, buf.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	groups := Group(segments, buf)
	e.logger.Info("Extracting reference audio",
		slog.Int("segments", len(segments)),
		slog.Int("speakers", len(groups.Speakers)),
		slog.Int("sample_rate", buf.SampleRate),
		slog.Float64("source_duration", buf.Duration()),
	)

	results := make([]speakerResult, len(groups.Speakers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)
	for i, speaker := range groups.Speakers {
		i, speaker := i, speaker // per-iteration copies (go1.21 loop semantics)
		candidates := groups.Candidates[speaker]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.processSpeaker(gctx, analyzer, speaker, candidates)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// errgroup only reports errors returned by the workers
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      uuid.NewString(),
		SampleRate: buf.SampleRate,
		References: make(map[string]*Artifact),
		Failures:   make(map[string]error),
	}
	for i, speaker := range groups.Speakers {
		res := results[i]
		switch {
		case res.skipped:
			report.Skipped = append(report.Skipped, speaker)
		case res.err != nil:
			report.Failures[speaker] = res.err
		default:
			report.References[speaker] = res.artifact
		}
	}

	if err := e.writer.WriteMetadata(ctx, report); err != nil {
		e.logger.Error("Failed to write reference metadata", slog.String("error", err.Error()))
		return report, fmt.Errorf("failed to write metadata: %w", err)
	}

	elapsed := time.Since(started)
	e.metrics.RecordExtraction(elapsed.Seconds())
	e.logger.Info("Reference extraction finished",
		slog.String("run_id", report.RunID),
		slog.Int("references", len(report.References)),
		slog.Int("failures", len(report.Failures)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("elapsed", elapsed),
	)

	return report, nil
}

// processSpeaker scores, selects and writes the reference of one speaker
func (e *Extractor) processSpeaker(ctx context.Context, analyzer *quality.Analyzer, speaker string, candidates []Candidate) speakerResult {
	if len(candidates) == 0 {
		e.logger.Warn("Speaker has no usable audio, skipping", slog.String("speaker", speaker))
		e.metrics.RecordSkipped()
		return speakerResult{skipped: true}
	}

	scored := e.score(analyzer, candidates)

	sel, err := e.selector.Select(scored)
	if err != nil {
		e.logger.Error("Failed to select reference",
			slog.String("speaker", speaker),
			slog.String("error", err.Error()),
		)
		e.metrics.RecordFailure("select")
		return speakerResult{err: fmt.Errorf("selection failed: %w", err)}
	}

	ref := e.newReference(analyzer, speaker, sel)

	path, err := e.writer.Write(ctx, ref)
	if err != nil {
		e.logger.Error("Failed to write reference",
			slog.String("speaker", speaker),
			slog.String("error", err.Error()),
		)
		e.metrics.RecordFailure("write")
		return speakerResult{err: fmt.Errorf("write failed: %w", err)}
	}

	e.metrics.RecordReference(sel.Mode(), ref.Duration)
	e.logger.Info("Reference written",
		slog.String("speaker", speaker),
		slog.String("mode", sel.Mode()),
		slog.Float64("duration", ref.Duration),
		slog.Float64("score", ref.Score),
		slog.Float64("speech_ratio", ref.Metrics.SpeechRatio),
		slog.Float64("snr_db", ref.Metrics.SNRDB),
		slog.String("path", path),
	)

	return speakerResult{artifact: newArtifact(ref, path)}
}

// score measures every candidate
func (e *Extractor) score(analyzer *quality.Analyzer, candidates []Candidate) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		m := analyzer.Measure(c.Audio)
		s := e.scorer.Score(m, c.Duration())
		scored[i] = Scored{Candidate: c, Metrics: m, Score: s}
		e.metrics.RecordCandidate(s)

		e.logger.Debug("Candidate scored",
			slog.String("speaker", c.Speaker),
			slog.Float64("start", c.Start()),
			slog.Float64("duration", c.Duration()),
			slog.Float64("score", s),
		)
	}
	return scored
}

// newReference measures the final audio of a selection
func (e *Extractor) newReference(analyzer *quality.Analyzer, speaker string, sel Selection) *SpeakerReference {
	buf := sel.Audio()
	m := analyzer.Measure(buf)
	return &SpeakerReference{
		Speaker:   speaker,
		Audio:     buf,
		Duration:  buf.Duration(),
		Selection: sel,
		Metrics:   m,
		Score:     e.scorer.Score(m, buf.Duration()),
	}
}

// Analyze scores every candidate without writing anything
func (e *Extractor) Analyze(segments []transcript.Segment, buf *audio.Buffer) ([]SpeakerAnalysis, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("source audio unusable: %w", err)
	}

	analyzer, err := quality.NewAnalyzer(e.analyzerConfig, buf.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	groups := Group(segments, buf)
	analyses := make([]SpeakerAnalysis, 0, len(groups.Speakers))
	for _, speaker := range groups.Speakers {
		candidates := groups.Candidates[speaker]
		analysis := SpeakerAnalysis{Speaker: speaker}
		if len(candidates) > 0 {
			scored := e.score(analyzer, candidates)
			sel, err := e.selector.Select(scored)
			if err != nil {
				return nil, fmt.Errorf("speaker %s: %w", speaker, err)
			}
			sort.SliceStable(scored, func(i, j int) bool { return ranksBefore(scored[i], scored[j]) })
			analysis.Candidates = scored
			analysis.Selection = sel
		}
		analyses = append(analyses, analysis)
	}

	return analyses, nil
}
