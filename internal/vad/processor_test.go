package vad

import (
	"math"
	"testing"
	"time"
)

const testRate = 8000

// tone generates a 440Hz sine of the given amplitude (0-1 of full scale)
func tone(seconds, amplitude float64) []int16 {
	n := int(math.Round(seconds * testRate))
	samples := make([]int16, n)
	for i := range samples {
		ts := float64(i) / testRate
		samples[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*440*ts))
	}
	return samples
}

func TestNewProcessor(t *testing.T) {
	processor, err := NewProcessor(DefaultConfig(), testRate)
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	if processor.GetFrameSize() != 200 {
		t.Errorf("Expected frame size 200, got %d", processor.GetFrameSize())
	}

	if processor.GetHopSize() != 200 {
		t.Errorf("Expected hop size 200, got %d", processor.GetHopSize())
	}

	if processor.GetSampleRate() != testRate {
		t.Errorf("Expected sample rate %d, got %d", testRate, processor.GetSampleRate())
	}
}

func TestNewProcessorValidation(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(c *Config)
		sampleRate int
		expectErr  bool
	}{
		{
			name:       "valid parameters",
			modify:     func(c *Config) {},
			sampleRate: testRate,
			expectErr:  false,
		},
		{
			name:       "zero frame duration",
			modify:     func(c *Config) { c.FrameDuration = 0 },
			sampleRate: testRate,
			expectErr:  true,
		},
		{
			name:       "hop longer than frame",
			modify:     func(c *Config) { c.HopDuration = 50 * time.Millisecond },
			sampleRate: testRate,
			expectErr:  true,
		},
		{
			name:       "percentile too high",
			modify:     func(c *Config) { c.NoisePercentile = 101 },
			sampleRate: testRate,
			expectErr:  true,
		},
		{
			name:       "negative margin",
			modify:     func(c *Config) { c.SpeechMarginDB = -1 },
			sampleRate: testRate,
			expectErr:  true,
		},
		{
			name:       "negative sample rate",
			modify:     func(c *Config) {},
			sampleRate: -1,
			expectErr:  true,
		},
		{
			name:       "frame shorter than one sample",
			modify:     func(c *Config) { c.FrameDuration = time.Microsecond; c.HopDuration = time.Microsecond },
			sampleRate: testRate,
			expectErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			_, err := NewProcessor(cfg, tt.sampleRate)
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestProcessSilence(t *testing.T) {
	processor, _ := NewProcessor(DefaultConfig(), testRate)

	result := processor.Process(make([]int16, testRate))

	if len(result.Frames) != 40 {
		t.Errorf("Expected 40 frames, got %d", len(result.Frames))
	}

	if result.SpeechFrames != 0 {
		t.Errorf("Expected no speech frames in silence, got %d", result.SpeechFrames)
	}

	for _, f := range result.Frames {
		if f.LevelDB != -90 {
			t.Fatalf("Expected silence level -90 dBFS, got %f", f.LevelDB)
		}
	}
}

func TestProcessConstantTone(t *testing.T) {
	processor, _ := NewProcessor(DefaultConfig(), testRate)

	result := processor.Process(tone(1.0, 0.3))

	if result.SpeechFrames != len(result.Frames) {
		t.Errorf("Expected every frame of a steady tone to be speech, got %d/%d",
			result.SpeechFrames, len(result.Frames))
	}
}

func TestProcessToneAfterSilence(t *testing.T) {
	processor, _ := NewProcessor(DefaultConfig(), testRate)

	samples := append(make([]int16, 3*testRate), tone(1.0, 0.3)...)
	result := processor.Process(samples)

	if result.SpeechFrames != 40 {
		t.Errorf("Expected 40 speech frames, got %d", result.SpeechFrames)
	}

	for _, f := range result.Frames {
		inTone := f.Offset >= 3*testRate
		if f.Speech != inTone {
			t.Fatalf("Frame at %d: expected speech=%v", f.Offset, inTone)
		}
	}
}

func TestProcessShortClip(t *testing.T) {
	processor, _ := NewProcessor(DefaultConfig(), testRate)

	result := processor.Process(tone(0.01, 0.3))
	if len(result.Frames) != 1 {
		t.Fatalf("Expected a single frame for a clip shorter than one frame, got %d", len(result.Frames))
	}

	empty := processor.Process(nil)
	if len(empty.Frames) != 0 || empty.SpeechFrames != 0 {
		t.Error("Expected no frames for empty input")
	}
}

func TestProcessTrailingFrame(t *testing.T) {
	processor, _ := NewProcessor(DefaultConfig(), testRate)

	// 1050 samples: frames at 0..800 plus one end-aligned frame at 850
	result := processor.Process(tone(1050.0/testRate, 0.3))

	if len(result.Frames) != 6 {
		t.Fatalf("Expected 6 frames, got %d", len(result.Frames))
	}

	if result.Frames[5].Offset != 850 {
		t.Errorf("Expected trailing frame at offset 850, got %d", result.Frames[5].Offset)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}

	tests := []struct {
		p        float64
		expected float64
	}{
		{p: 0, expected: 1},
		{p: 50, expected: 3},
		{p: 100, expected: 5},
		{p: 20, expected: 1.8},
	}

	for _, tt := range tests {
		got := Percentile(values, tt.p)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Percentile(%v): expected %f, got %f", tt.p, tt.expected, got)
		}
	}

	if values[0] != 5 {
		t.Error("Percentile must not reorder its input")
	}

	if Percentile(nil, 50) != 0 {
		t.Error("Expected 0 for empty input")
	}
}

func TestPowerToDB(t *testing.T) {
	if got := PowerToDB(0, -90); got != -90 {
		t.Errorf("Expected floor for zero power, got %f", got)
	}

	if got := PowerToDB(1, -90); got != 0 {
		t.Errorf("Expected 0 dBFS for unit power, got %f", got)
	}

	if got := PowerToDB(1e-12, -90); got != -90 {
		t.Errorf("Expected floor for power below floor, got %f", got)
	}
}
