package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete extraction configuration
type Config struct {
	Reference ReferenceConfig `yaml:"reference"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ReferenceConfig contains the reference duration bounds
type ReferenceConfig struct {
	MinDuration float64 `yaml:"min_duration"` // seconds
	MaxDuration float64 `yaml:"max_duration"` // seconds
	Concurrency int     `yaml:"concurrency"`  // speakers processed in parallel
}

// AnalysisConfig contains the frame analysis and measurement parameters
type AnalysisConfig struct {
	FrameMs         int     `yaml:"frame_ms"`
	HopMs           int     `yaml:"hop_ms"`
	NoisePercentile float64 `yaml:"noise_percentile"`
	SpeechMarginDB  float64 `yaml:"speech_margin_db"`
	SpeechFloorDB   float64 `yaml:"speech_floor_db"`
	PeakHeadroomDB  float64 `yaml:"peak_headroom_db"`
	SilenceFloorDB  float64 `yaml:"silence_floor_db"`
	SilenceDB       float64 `yaml:"silence_db"`
	ClipLevel       float64 `yaml:"clip_level"` // fraction of full scale
	SNRCeilingDB    float64 `yaml:"snr_ceiling_db"`
}

// WeightsConfig contains the composite score weights
type WeightsConfig struct {
	SpeechRatio float64 `yaml:"speech_ratio"`
	SNR         float64 `yaml:"snr"`
	Loudness    float64 `yaml:"loudness"`
	Duration    float64 `yaml:"duration"`
	Clipping    float64 `yaml:"clipping"`
}

// ScoringConfig contains the score weights and normalization scales
type ScoringConfig struct {
	Weights              WeightsConfig `yaml:"weights"`
	SNRFloorDB           float64       `yaml:"snr_floor_db"`
	SNRCeilDB            float64       `yaml:"snr_ceil_db"`
	TargetLoudnessDBFS   float64       `yaml:"target_loudness_dbfs"`
	LoudnessToleranceDB  float64       `yaml:"loudness_tolerance_db"`
	ClipPenaltyScale     float64       `yaml:"clip_penalty_scale"`
	PreferredMinDuration float64       `yaml:"preferred_min_duration"` // seconds
	PreferredMaxDuration float64       `yaml:"preferred_max_duration"` // seconds
	DurationFalloff      float64       `yaml:"duration_falloff"`       // seconds
	ShortClipSeconds     float64       `yaml:"short_clip_seconds"`
	ShortClipPenalty     float64       `yaml:"short_clip_penalty"`
	LowSpeechRatio       float64       `yaml:"low_speech_ratio"`
	LowSpeechPenalty     float64       `yaml:"low_speech_penalty"`
}

// OutputConfig contains output locations
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	MetadataFile string `yaml:"metadata_file"` // relative to dir, empty disables metadata
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`       // stdout, stderr or a file path
	MaxSizeMB  int    `yaml:"max_size_mb"`  // file output only
	MaxBackups int    `yaml:"max_backups"`  // file output only
	MaxAgeDays int    `yaml:"max_age_days"` // file output only
	Compress   bool   `yaml:"compress"`     // file output only
}

// MetricsConfig contains metrics export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty disables export
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Reference: ReferenceConfig{
			MinDuration: 3.0,
			MaxDuration: 10.0,
			Concurrency: 4,
		},
		Analysis: AnalysisConfig{
			FrameMs:         25,
			HopMs:           25,
			NoisePercentile: 20,
			SpeechMarginDB:  6,
			SpeechFloorDB:   -45,
			PeakHeadroomDB:  2,
			SilenceFloorDB:  -60,
			SilenceDB:       -90,
			ClipLevel:       0.995,
			SNRCeilingDB:    60,
		},
		Scoring: ScoringConfig{
			Weights: WeightsConfig{
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
		},
		Output: OutputConfig{
			Dir:          "refs",
			MetadataFile: "ref_metadata.json",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads and parses the configuration file. Fields missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Reference.Validate(); err != nil {
		return fmt.Errorf("reference config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates reference configuration
func (r *ReferenceConfig) Validate() error {
	if r.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %f", r.MinDuration)
	}

	if r.MaxDuration < r.MinDuration {
		return fmt.Errorf("max_duration (%f) must not be less than min_duration (%f)",
			r.MaxDuration, r.MinDuration)
	}

	if r.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", r.Concurrency)
	}

	return nil
}

// Validate validates analysis configuration
func (a *AnalysisConfig) Validate() error {
	if a.FrameMs < 1 {
		return fmt.Errorf("frame_ms must be at least 1, got %d", a.FrameMs)
	}

	if a.HopMs < 1 || a.HopMs > a.FrameMs {
		return fmt.Errorf("hop_ms must be between 1 and frame_ms (%d), got %d", a.FrameMs, a.HopMs)
	}

	if a.NoisePercentile < 0 || a.NoisePercentile > 100 {
		return fmt.Errorf("noise_percentile must be between 0 and 100, got %f", a.NoisePercentile)
	}

	if a.SpeechMarginDB < 0 {
		return fmt.Errorf("speech_margin_db cannot be negative, got %f", a.SpeechMarginDB)
	}

	if a.PeakHeadroomDB < 0 {
		return fmt.Errorf("peak_headroom_db cannot be negative, got %f", a.PeakHeadroomDB)
	}

	if a.SilenceDB > a.SilenceFloorDB {
		return fmt.Errorf("silence_db (%f) must not exceed silence_floor_db (%f)", a.SilenceDB, a.SilenceFloorDB)
	}

	if a.ClipLevel <= 0 || a.ClipLevel > 1 {
		return fmt.Errorf("clip_level must be in (0, 1], got %f", a.ClipLevel)
	}

	if a.SNRCeilingDB <= 0 {
		return fmt.Errorf("snr_ceiling_db must be positive, got %f", a.SNRCeilingDB)
	}

	return nil
}

// Validate validates scoring configuration
func (s *ScoringConfig) Validate() error {
	w := s.Weights
	if w.SpeechRatio < 0 || w.SNR < 0 || w.Loudness < 0 || w.Duration < 0 || w.Clipping < 0 {
		return fmt.Errorf("weights cannot be negative")
	}

	if s.SNRCeilDB <= s.SNRFloorDB {
		return fmt.Errorf("snr_ceil_db (%f) must be greater than snr_floor_db (%f)", s.SNRCeilDB, s.SNRFloorDB)
	}

	if s.LoudnessToleranceDB <= 0 {
		return fmt.Errorf("loudness_tolerance_db must be positive, got %f", s.LoudnessToleranceDB)
	}

	if s.ClipPenaltyScale <= 0 {
		return fmt.Errorf("clip_penalty_scale must be positive, got %f", s.ClipPenaltyScale)
	}

	if s.PreferredMinDuration <= 0 || s.PreferredMaxDuration < s.PreferredMinDuration {
		return fmt.Errorf("preferred duration range [%f, %f] is invalid",
			s.PreferredMinDuration, s.PreferredMaxDuration)
	}

	if s.DurationFalloff <= 0 {
		return fmt.Errorf("duration_falloff must be positive, got %f", s.DurationFalloff)
	}

	if s.ShortClipPenalty < 0 || s.LowSpeechPenalty < 0 {
		return fmt.Errorf("penalties cannot be negative")
	}

	return nil
}

// Validate validates output configuration
func (o *OutputConfig) Validate() error {
	if o.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits cannot be negative")
	}

	return nil
}

// GetMinDuration returns the minimum reference duration as a time.Duration
func (r *ReferenceConfig) GetMinDuration() time.Duration {
	return time.Duration(r.MinDuration * float64(time.Second))
}

// GetMaxDuration returns the maximum reference duration as a time.Duration
func (r *ReferenceConfig) GetMaxDuration() time.Duration {
	return time.Duration(r.MaxDuration * float64(time.Second))
}

// GetFrameDuration returns the analysis frame length as a time.Duration
func (a *AnalysisConfig) GetFrameDuration() time.Duration {
	return time.Duration(a.FrameMs) * time.Millisecond
}

// GetHopDuration returns the analysis hop as a time.Duration
func (a *AnalysisConfig) GetHopDuration() time.Duration {
	return time.Duration(a.HopMs) * time.Millisecond
}
