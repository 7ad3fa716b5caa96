package vad

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// fullScale is the int16 reference level for dBFS conversion
const fullScale = 32768.0

// Config holds the frame classification parameters
type Config struct {
	FrameDuration   time.Duration // analysis frame length
	HopDuration     time.Duration // distance between frame starts
	NoisePercentile float64       // percentile of frame levels taken as the noise floor
	SpeechMarginDB  float64       // speech must exceed the noise floor by this much
	SpeechFloorDB   float64       // lower bound for the speech threshold
	PeakHeadroomDB  float64       // threshold never exceeds the loudest frame minus this
	SilenceFloorDB  float64       // frames below this level are never speech
	SilenceDB       float64       // level reported for digital silence
}

// DefaultConfig returns the classification defaults
func DefaultConfig() Config {
	return Config{
		FrameDuration:   25 * time.Millisecond,
		HopDuration:     25 * time.Millisecond,
		NoisePercentile: 20,
		SpeechMarginDB:  6,
		SpeechFloorDB:   -45,
		PeakHeadroomDB:  2,
		SilenceFloorDB:  -60,
		SilenceDB:       -90,
	}
}

// Validate checks the classification parameters
func (c Config) Validate() error {
	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame duration must be positive, got %s", c.FrameDuration)
	}
	if c.HopDuration <= 0 || c.HopDuration > c.FrameDuration {
		return fmt.Errorf("hop duration must be in (0, %s], got %s", c.FrameDuration, c.HopDuration)
	}
	if c.NoisePercentile < 0 || c.NoisePercentile > 100 {
		return fmt.Errorf("noise percentile must be between 0 and 100, got %f", c.NoisePercentile)
	}
	if c.SpeechMarginDB < 0 {
		return fmt.Errorf("speech margin cannot be negative, got %f", c.SpeechMarginDB)
	}
	if c.PeakHeadroomDB < 0 {
		return fmt.Errorf("peak headroom cannot be negative, got %f", c.PeakHeadroomDB)
	}
	if c.SilenceDB > c.SilenceFloorDB {
		return fmt.Errorf("silence level (%f) must not exceed silence floor (%f)", c.SilenceDB, c.SilenceFloorDB)
	}
	return nil
}

// Processor classifies fixed-size frames of a clip as speech or non-speech
// using short-term energy against a noise floor derived from the clip itself.
// It holds no mutable state and is safe for concurrent use.
type Processor struct {
	config     Config
	sampleRate int
	frameSize  int // samples per frame
	hopSize    int // samples between frame starts
}

// Frame is the energy of one analysis frame
type Frame struct {
	Offset  int     `json:"offset"`   // first sample of the frame
	Power   float64 `json:"power"`    // mean squared amplitude relative to full scale
	LevelDB float64 `json:"level_db"` // power in dBFS
	Speech  bool    `json:"speech"`
}

// Result is the classification of one clip
type Result struct {
	Frames       []Frame `json:"frames"`
	NoiseFloorDB float64 `json:"noise_floor_db"`
	ThresholdDB  float64 `json:"threshold_db"`
	SpeechFrames int     `json:"speech_frames"`
}

// NewProcessor creates a frame classifier for the given sample rate
func NewProcessor(config Config, sampleRate int) (*Processor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	frameSize := int(math.Round(config.FrameDuration.Seconds() * float64(sampleRate)))
	hopSize := int(math.Round(config.HopDuration.Seconds() * float64(sampleRate)))
	if frameSize < 1 || hopSize < 1 {
		return nil, fmt.Errorf("frame of %s at %d Hz is shorter than one sample", config.FrameDuration, sampleRate)
	}

	return &Processor{
		config:     config,
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
	}, nil
}

// Process splits samples into frames and classifies each one.
// A clip shorter than one frame is analyzed as a single frame; a trailing
// region not covered by the hop grid gets one extra end-aligned frame.
func (p *Processor) Process(samples []int16) *Result {
	frames := p.frames(samples)
	result := &Result{Frames: frames}
	if len(frames) == 0 {
		return result
	}

	levels := make([]float64, len(frames))
	peak := math.Inf(-1)
	for i, f := range frames {
		levels[i] = f.LevelDB
		if f.LevelDB > peak {
			peak = f.LevelDB
		}
	}

	noise := Percentile(levels, p.config.NoisePercentile)
	threshold := math.Max(noise+p.config.SpeechMarginDB, p.config.SpeechFloorDB)
	threshold = math.Min(threshold, peak-p.config.PeakHeadroomDB)
	// Keeps all-silent clips from counting as speech once the peak cap applies.
	threshold = math.Max(threshold, p.config.SilenceFloorDB)

	for i := range result.Frames {
		if result.Frames[i].LevelDB >= threshold {
			result.Frames[i].Speech = true
			result.SpeechFrames++
		}
	}

	result.NoiseFloorDB = noise
	result.ThresholdDB = threshold
	return result
}

// frames computes per-frame energy
func (p *Processor) frames(samples []int16) []Frame {
	n := len(samples)
	if n == 0 {
		return nil
	}

	if n <= p.frameSize {
		return []Frame{p.frame(samples, 0)}
	}

	frames := make([]Frame, 0, (n-p.frameSize)/p.hopSize+2)
	last := n - p.frameSize
	pos := 0
	for ; pos <= last; pos += p.hopSize {
		frames = append(frames, p.frame(samples[pos:pos+p.frameSize], pos))
	}

	if pos-p.hopSize < last {
		frames = append(frames, p.frame(samples[last:], last))
	}

	return frames
}

// frame computes the energy of one window
func (p *Processor) frame(window []int16, offset int) Frame {
	power := MeanPower(window)
	return Frame{
		Offset:  offset,
		Power:   power,
		LevelDB: PowerToDB(power, p.config.SilenceDB),
	}
}

// GetFrameSize returns the frame size in samples
func (p *Processor) GetFrameSize() int {
	return p.frameSize
}

// GetHopSize returns the hop size in samples
func (p *Processor) GetHopSize() int {
	return p.hopSize
}

// GetSampleRate returns the sample rate the processor was built for
func (p *Processor) GetSampleRate() int {
	return p.sampleRate
}

// MeanPower returns the mean squared amplitude of samples relative to full scale
func MeanPower(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var energy float64
	for _, s := range samples {
		v := float64(s) / fullScale
		energy += v * v
	}
	return energy / float64(len(samples))
}

// PowerToDB converts a relative power to dBFS, returning floor for silence
func PowerToDB(power, floor float64) float64 {
	if power <= 0 {
		return floor
	}
	db := 10 * math.Log10(power)
	if db < floor {
		return floor
	}
	return db
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. The input is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := float64(len(sorted)-1) * (p / 100.0)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
