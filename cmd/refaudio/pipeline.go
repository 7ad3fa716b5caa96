package main

import (
	"fmt"
	"log/slog"

	"github.com/skypro1111/refaudio/internal/audio"
	"github.com/skypro1111/refaudio/internal/config"
	"github.com/skypro1111/refaudio/internal/quality"
	"github.com/skypro1111/refaudio/internal/reference"
	"github.com/skypro1111/refaudio/internal/transcript"
	"github.com/skypro1111/refaudio/internal/vad"
)

// extractorConfig maps the file configuration onto the extractor
func extractorConfig(cfg *config.Config) reference.ExtractorConfig {
	a := cfg.Analysis
	s := cfg.Scoring

	return reference.ExtractorConfig{
		Reference: reference.Config{
			MinDuration: cfg.Reference.MinDuration,
			MaxDuration: cfg.Reference.MaxDuration,
			Concurrency: cfg.Reference.Concurrency,
		},
		Analyzer: quality.AnalyzerConfig{
			VAD: vad.Config{
				FrameDuration:   a.GetFrameDuration(),
				HopDuration:     a.GetHopDuration(),
				NoisePercentile: a.NoisePercentile,
				SpeechMarginDB:  a.SpeechMarginDB,
				SpeechFloorDB:   a.SpeechFloorDB,
				PeakHeadroomDB:  a.PeakHeadroomDB,
				SilenceFloorDB:  a.SilenceFloorDB,
				SilenceDB:       a.SilenceDB,
			},
			ClipLevel:    a.ClipLevel,
			SNRCeilingDB: a.SNRCeilingDB,
		},
		Scorer: quality.ScorerConfig{
			Weights: quality.Weights{
				SpeechRatio: s.Weights.SpeechRatio,
				SNR:         s.Weights.SNR,
				Loudness:    s.Weights.Loudness,
				Duration:    s.Weights.Duration,
				Clipping:    s.Weights.Clipping,
			},
			SNRFloorDB:           s.SNRFloorDB,
			SNRCeilDB:            s.SNRCeilDB,
			TargetLoudnessDBFS:   s.TargetLoudnessDBFS,
			LoudnessToleranceDB:  s.LoudnessToleranceDB,
			ClipPenaltyScale:     s.ClipPenaltyScale,
			PreferredMinDuration: s.PreferredMinDuration,
			PreferredMaxDuration: s.PreferredMaxDuration,
			DurationFalloff:      s.DurationFalloff,
			ShortClipSeconds:     s.ShortClipSeconds,
			ShortClipPenalty:     s.ShortClipPenalty,
			LowSpeechRatio:       s.LowSpeechRatio,
			LowSpeechPenalty:     s.LowSpeechPenalty,
		},
	}
}

// loadInputs reads the source recording and its transcript
func loadInputs(logger *slog.Logger, audioPath, segmentsPath string) ([]transcript.Segment, *audio.Buffer, error) {
	if audioPath == "" || segmentsPath == "" {
		return nil, nil, fmt.Errorf("both --audio and --segments are required")
	}

	buf, info, err := audio.LoadWAV(audioPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Source audio loaded",
		slog.String("path", audioPath),
		slog.Int("sample_rate", info.SampleRate),
		slog.Int("channels", info.Channels),
		slog.Int("bits_per_sample", info.BitsPerSample),
		slog.Float64("duration", info.Duration),
	)
	if info.Channels > 1 {
		logger.Warn("Source audio downmixed to mono", slog.Int("channels", info.Channels))
	}

	segments, err := transcript.Load(segmentsPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Transcript loaded",
		slog.String("path", segmentsPath),
		slog.Int("segments", len(segments)),
	)

	return segments, buf, nil
}
