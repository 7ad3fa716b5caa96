package quality

import (
	"fmt"
	"math"

	"github.com/skypro1111/refaudio/internal/audio"
	"github.com/skypro1111/refaudio/internal/vad"
)

// maxSample is the largest positive int16 amplitude
const maxSample = 32767

// Metrics are the acoustic quality measurements of one clip
type Metrics struct {
	SpeechRatio      float64 `json:"speech_ratio"`
	SNRDB            float64 `json:"snr_db"`
	LoudnessDBFS     float64 `json:"loudness_dbfs"`
	ClippingFraction float64 `json:"clipping_fraction"`
}

// AnalyzerConfig holds the signal measurement parameters
type AnalyzerConfig struct {
	VAD          vad.Config
	ClipLevel    float64 // fraction of full scale counted as clipped
	SNRCeilingDB float64 // SNR reported when no non-speech frames exist
}

// DefaultAnalyzerConfig returns the measurement defaults
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		VAD:          vad.DefaultConfig(),
		ClipLevel:    0.995,
		SNRCeilingDB: 60,
	}
}

// Validate checks the measurement parameters
func (c AnalyzerConfig) Validate() error {
	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad: %w", err)
	}
	if c.ClipLevel <= 0 || c.ClipLevel > 1 {
		return fmt.Errorf("clip level must be in (0, 1], got %f", c.ClipLevel)
	}
	if c.SNRCeilingDB <= 0 {
		return fmt.Errorf("snr ceiling must be positive, got %f", c.SNRCeilingDB)
	}
	return nil
}

// Analyzer measures clips taken from a source at one sample rate.
// It is immutable and safe for concurrent use.
type Analyzer struct {
	config    AnalyzerConfig
	processor *vad.Processor
	clipAbs   int32
}

// NewAnalyzer creates an analyzer for clips at sampleRate
func NewAnalyzer(config AnalyzerConfig, sampleRate int) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	processor, err := vad.NewProcessor(config.VAD, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame classifier: %w", err)
	}

	return &Analyzer{
		config:    config,
		processor: processor,
		clipAbs:   int32(math.Ceil(config.ClipLevel * maxSample)),
	}, nil
}

// Measure computes the quality metrics of a clip. It is a pure function of
// the samples; the buffer is not modified.
func (a *Analyzer) Measure(clip *audio.Buffer) Metrics {
	silence := a.config.VAD.SilenceDB
	if clip.Len() == 0 {
		return Metrics{LoudnessDBFS: silence}
	}

	result := a.processor.Process(clip.Samples)

	return Metrics{
		SpeechRatio:      float64(result.SpeechFrames) / float64(len(result.Frames)),
		SNRDB:            a.snr(result),
		LoudnessDBFS:     vad.PowerToDB(vad.MeanPower(clip.Samples), silence),
		ClippingFraction: a.clipping(clip.Samples),
	}
}

// snr compares the mean power of speech frames with that of non-speech frames
func (a *Analyzer) snr(result *vad.Result) float64 {
	var speechPower, noisePower float64
	var speechCount, noiseCount int
	for _, f := range result.Frames {
		if f.Speech {
			speechPower += f.Power
			speechCount++
		} else {
			noisePower += f.Power
			noiseCount++
		}
	}

	if speechCount == 0 {
		return 0
	}
	if noiseCount == 0 || noisePower == 0 {
		return a.config.SNRCeilingDB
	}

	ratio := (speechPower / float64(speechCount)) / (noisePower / float64(noiseCount))
	snr := 10 * math.Log10(ratio)
	return math.Max(0, math.Min(snr, a.config.SNRCeilingDB))
}

// clipping returns the fraction of samples at or beyond the clip level
func (a *Analyzer) clipping(samples []int16) float64 {
	clipped := 0
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v >= a.clipAbs {
			clipped++
		}
	}
	return float64(clipped) / float64(len(samples))
}
