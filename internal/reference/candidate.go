package reference

import (
	"github.com/skypro1111/refaudio/internal/audio"
	"github.com/skypro1111/refaudio/internal/quality"
	"github.com/skypro1111/refaudio/internal/transcript"
)

// Candidate is one speaker clip considered as a reference
type Candidate struct {
	Speaker  string
	Audio    *audio.Buffer
	Segments []transcript.Segment
}

// Start returns the transcript start time of the candidate
func (c Candidate) Start() float64 {
	if len(c.Segments) == 0 {
		return 0
	}
	return c.Segments[0].Start
}

// Duration returns the clip length in seconds
func (c Candidate) Duration() float64 {
	return c.Audio.Duration()
}

// Scored is a candidate with its measurements and composite score
type Scored struct {
	Candidate
	Metrics quality.Metrics
	Score   float64
}

// ranksBefore reports whether a should be preferred over b: higher score
// first, exact ties go to the earlier start
func ranksBefore(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Start() < b.Start()
}

// Groups are the candidates of every speaker seen in the transcript
type Groups struct {
	Speakers   []string               // first-appearance order, including speakers without audio
	Candidates map[string][]Candidate // only speakers with usable audio
}

// Group partitions segments by speaker and slices each segment's audio.
// Segments with end <= start are dropped, offsets are clamped to the
// buffer, and segments whose clamped span is empty are dropped.
func Group(segments []transcript.Segment, buf *audio.Buffer) *Groups {
	groups := &Groups{
		Candidates: make(map[string][]Candidate),
	}

	seen := make(map[string]bool)
	for _, seg := range segments {
		if !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			groups.Speakers = append(groups.Speakers, seg.Speaker)
		}

		if seg.End <= seg.Start {
			continue
		}

		clip := buf.Slice(seg.Start, seg.End)
		if clip.Len() == 0 {
			continue
		}

		groups.Candidates[seg.Speaker] = append(groups.Candidates[seg.Speaker], Candidate{
			Speaker:  seg.Speaker,
			Audio:    clip,
			Segments: []transcript.Segment{seg},
		})
	}

	return groups
}
