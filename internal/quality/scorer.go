package quality

import (
	"fmt"
	"math"
)

// Weights are the coefficients of the composite score
type Weights struct {
	SpeechRatio float64
	SNR         float64
	Loudness    float64
	Duration    float64
	Clipping    float64
}

// ScorerConfig holds the weights and normalization scales
type ScorerConfig struct {
	Weights Weights

	SNRFloorDB float64 // SNR mapped to 0
	SNRCeilDB  float64 // SNR mapped to 1

	TargetLoudnessDBFS  float64 // loudness mapped to 1
	LoudnessToleranceDB float64 // distance from target mapped to 0

	ClipPenaltyScale float64 // clipping fraction at which the penalty saturates

	PreferredMinDuration float64 // seconds; duration preference is 1 from here...
	PreferredMaxDuration float64 // ...to here
	DurationFalloff      float64 // seconds past the preferred max until preference reaches 0

	ShortClipSeconds float64
	ShortClipPenalty float64
	LowSpeechRatio   float64
	LowSpeechPenalty float64
}

// DefaultScorerConfig returns the scoring defaults
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights: Weights{
			SpeechRatio: 0.35,
			SNR:         0.25,
			Loudness:    0.15,
			Duration:    0.15,
			Clipping:    0.25,
		},
		SNRFloorDB:           6,
		SNRCeilDB:            24,
		TargetLoudnessDBFS:   -19,
		LoudnessToleranceDB:  12,
		ClipPenaltyScale:     0.01,
		PreferredMinDuration: 4,
		PreferredMaxDuration: 8,
		DurationFalloff:      4,
		ShortClipSeconds:     1.2,
		ShortClipPenalty:     0.25,
		LowSpeechRatio:       0.25,
		LowSpeechPenalty:     0.25,
	}
}

// Validate checks the scoring parameters
func (c ScorerConfig) Validate() error {
	w := c.Weights
	if w.SpeechRatio < 0 || w.SNR < 0 || w.Loudness < 0 || w.Duration < 0 || w.Clipping < 0 {
		return fmt.Errorf("weights cannot be negative: %+v", w)
	}
	if c.SNRCeilDB <= c.SNRFloorDB {
		return fmt.Errorf("snr ceil (%f) must be greater than snr floor (%f)", c.SNRCeilDB, c.SNRFloorDB)
	}
	if c.LoudnessToleranceDB <= 0 {
		return fmt.Errorf("loudness tolerance must be positive, got %f", c.LoudnessToleranceDB)
	}
	if c.ClipPenaltyScale <= 0 {
		return fmt.Errorf("clip penalty scale must be positive, got %f", c.ClipPenaltyScale)
	}
	if c.PreferredMinDuration <= 0 || c.PreferredMaxDuration < c.PreferredMinDuration {
		return fmt.Errorf("preferred duration range [%f, %f] is invalid", c.PreferredMinDuration, c.PreferredMaxDuration)
	}
	if c.DurationFalloff <= 0 {
		return fmt.Errorf("duration falloff must be positive, got %f", c.DurationFalloff)
	}
	if c.ShortClipPenalty < 0 || c.LowSpeechPenalty < 0 {
		return fmt.Errorf("penalties cannot be negative")
	}
	return nil
}

// Scorer combines metrics and duration into a single quality score
type Scorer struct {
	config ScorerConfig
}

// NewScorer creates a scorer
func NewScorer(config ScorerConfig) (*Scorer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{config: config}, nil
}

// Score returns the weighted quality score of a clip of the given duration
func (s *Scorer) Score(m Metrics, duration float64) float64 {
	c := s.config
	w := c.Weights

	score := w.SpeechRatio*m.SpeechRatio +
		w.SNR*s.normalizeSNR(m.SNRDB) +
		w.Loudness*s.normalizeLoudness(m.LoudnessDBFS) +
		w.Duration*s.DurationPreference(duration) -
		w.Clipping*s.clipPenalty(m.ClippingFraction)

	if duration < c.ShortClipSeconds {
		score -= c.ShortClipPenalty
	}
	if m.SpeechRatio < c.LowSpeechRatio {
		score -= c.LowSpeechPenalty
	}

	return score
}

// DurationPreference is 1 inside the preferred range and decays linearly
// toward 0 on both sides
func (s *Scorer) DurationPreference(duration float64) float64 {
	c := s.config
	switch {
	case duration <= 0:
		return 0
	case duration < c.PreferredMinDuration:
		return duration / c.PreferredMinDuration
	case duration <= c.PreferredMaxDuration:
		return 1
	default:
		return clamp01(1 - (duration-c.PreferredMaxDuration)/c.DurationFalloff)
	}
}

func (s *Scorer) normalizeSNR(snr float64) float64 {
	return clamp01((snr - s.config.SNRFloorDB) / (s.config.SNRCeilDB - s.config.SNRFloorDB))
}

func (s *Scorer) normalizeLoudness(loudness float64) float64 {
	return 1 - math.Min(math.Abs(loudness-s.config.TargetLoudnessDBFS)/s.config.LoudnessToleranceDB, 1)
}

func (s *Scorer) clipPenalty(fraction float64) float64 {
	return math.Min(1, math.Max(0, fraction)/s.config.ClipPenaltyScale)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
