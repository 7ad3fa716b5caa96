// Package transcript defines diarized transcript segments and loads them from
// the JSON produced by the upstream transcription stage.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoSegments is returned when a transcript file holds no usable segments
var ErrNoSegments = errors.New("transcript has no segments")

// Segment is one time-stamped, speaker-labelled piece of the transcript
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// Duration returns end - start in seconds; it may be negative for malformed segments
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// document mirrors {"segments": [...]}; other top-level keys are ignored
type document struct {
	Segments []Segment `json:"segments"`
}

// Load reads a transcript file
func Load(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript %s: %w", path, err)
	}

	segments, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcript %s: %w", path, err)
	}
	return segments, nil
}

// Parse decodes either {"segments": [...]} or a bare JSON array of segments.
// Segments without a speaker label are dropped.
func Parse(data []byte) ([]Segment, error) {
	var segments []Segment

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &segments); err != nil {
			return nil, err
		}
	} else {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		segments = doc.Segments
	}

	labelled := segments[:0]
	for _, seg := range segments {
		if seg.Speaker == "" {
			continue
		}
		labelled = append(labelled, seg)
	}

	if len(labelled) == 0 {
		return nil, ErrNoSegments
	}
	return labelled, nil
}
