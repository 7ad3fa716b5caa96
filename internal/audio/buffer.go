package audio

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyBuffer is returned when an operation needs at least one sample
	ErrEmptyBuffer = errors.New("audio buffer is empty")

	// ErrSampleRateMismatch is returned when buffers with different rates are joined
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
)

// Buffer holds mono PCM-16 samples at a fixed sample rate.
//
// Buffers returned by Slice and Prefix are read-only views that share the
// parent's backing array. Their capacity is clipped to their length, so an
// append on a view always reallocates and never touches the parent.
type Buffer struct {
	Samples    []int16
	SampleRate int
}

// NewBuffer creates a buffer over the given samples
func NewBuffer(samples []int16, sampleRate int) *Buffer {
	return &Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

// Validate checks that the buffer can be analyzed
func (b *Buffer) Validate() error {
	if b == nil || len(b.Samples) == 0 {
		return ErrEmptyBuffer
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}
	return nil
}

// Len returns the number of samples
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration returns the buffer length in seconds
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// SampleIndex converts a time offset in seconds to the nearest sample index.
// Rounding keeps decimal timestamps such as 4.02s from losing a sample to
// float error. The result is not clamped.
func (b *Buffer) SampleIndex(seconds float64) int {
	return int(math.Round(seconds * float64(b.SampleRate)))
}

// Slice returns the view covering [start, end) seconds.
// Offsets are clamped to the buffer; an empty span yields an empty view.
func (b *Buffer) Slice(start, end float64) *Buffer {
	return b.SliceSamples(b.SampleIndex(start), b.SampleIndex(end))
}

// SliceSamples returns the view covering sample indices [from, to), clamped
func (b *Buffer) SliceSamples(from, to int) *Buffer {
	n := len(b.Samples)
	from = min(max(from, 0), n)
	to = min(max(to, 0), n)
	if from > to {
		from = to
	}
	return &Buffer{
		Samples:    b.Samples[from:to:to],
		SampleRate: b.SampleRate,
	}
}

// Prefix returns the first maxSeconds of the buffer, or the buffer itself
// when it is already short enough
func (b *Buffer) Prefix(maxSeconds float64) *Buffer {
	// floor, so a prefix never runs past maxSeconds
	limit := int(math.Floor(maxSeconds * float64(b.SampleRate)))
	if limit >= len(b.Samples) {
		return b
	}
	return b.SliceSamples(0, limit)
}

// Concat joins buffers into a newly allocated buffer. All parts must share
// the same sample rate; nil parts are skipped.
func Concat(parts ...*Buffer) (*Buffer, error) {
	rate := 0
	total := 0
	for i, p := range parts {
		if p == nil {
			continue
		}
		if rate == 0 {
			rate = p.SampleRate
		} else if p.SampleRate != rate {
			return nil, fmt.Errorf("part %d has %d Hz, expected %d Hz: %w", i, p.SampleRate, rate, ErrSampleRateMismatch)
		}
		total += len(p.Samples)
	}
	if rate == 0 {
		return nil, ErrEmptyBuffer
	}

	samples := make([]int16, 0, total)
	for _, p := range parts {
		if p == nil {
			continue
		}
		samples = append(samples, p.Samples...)
	}

	return NewBuffer(samples, rate), nil
}
