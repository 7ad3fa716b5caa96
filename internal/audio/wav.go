package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVInfo describes the source format of a decoded WAV file
type WAVInfo struct {
	SampleRate    int     `json:"sample_rate"`
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	NumSamples    int     `json:"num_samples"`
}

// LoadWAV reads and decodes a WAV file from disk
func LoadWAV(path string) (*Buffer, *WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audio file %s: %w", path, err)
	}
	defer f.Close()

	buf, info, err := Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return buf, info, nil
}

// Decode decodes PCM WAV data into a mono 16-bit buffer.
// Multi-channel audio is downmixed by averaging, deeper samples are scaled
// down to 16 bits and 8-bit unsigned samples are re-centred.
func Decode(r io.ReadSeeker) (*Buffer, *WAVInfo, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, nil, fmt.Errorf("invalid WAV file")
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	if pcm.Format != nil && pcm.Format.NumChannels > 0 {
		channels = pcm.Format.NumChannels
	}
	if channels < 1 {
		return nil, nil, fmt.Errorf("unsupported channel count: %d", channels)
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	sampleRate := int(dec.SampleRate)
	if sampleRate <= 0 {
		return nil, nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	frames := len(pcm.Data) / channels
	if frames == 0 {
		return nil, nil, fmt.Errorf("no audio data found")
	}

	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int64
		for c := 0; c < channels; c++ {
			sum += int64(to16(pcm.Data[i*channels+c], bitDepth))
		}
		samples[i] = int16(sum / int64(channels))
	}

	info := &WAVInfo{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: bitDepth,
		Duration:      float64(frames) / float64(sampleRate),
		NumSamples:    frames,
	}

	return NewBuffer(samples, sampleRate), info, nil
}

// to16 scales a decoded integer sample of the given depth to the int16 range
func to16(v int, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// Encode writes the buffer as a 16-bit mono PCM WAV stream
func Encode(w io.WriteSeeker, b *Buffer) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("cannot encode audio: %w", err)
	}

	enc := wav.NewEncoder(w, b.SampleRate, 16, 1, 1)

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(s)
	}

	pcm := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  b.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(pcm); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV header: %w", err)
	}

	return nil
}
