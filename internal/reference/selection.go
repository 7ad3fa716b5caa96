package reference

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/skypro1111/refaudio/internal/audio"
)

// ErrNoCandidates is returned when a speaker has nothing to select from
var ErrNoCandidates = errors.New("no candidates")

// Selection is the outcome of reference selection for one speaker: either a
// single clip (*Selected) or a composition of several (*Composed).
type Selection interface {
	// Audio returns the reference samples
	Audio() *audio.Buffer
	// Sources returns the candidates the audio was taken from, in order
	Sources() []Scored
	// Mode labels the outcome: "single", "single/truncated" or "composed/<n>"
	Mode() string

	isSelection()
}

// Selected is a single candidate, possibly truncated to the maximum duration
type Selected struct {
	Clip      Scored
	Truncated bool
	audio     *audio.Buffer
}

func (s *Selected) Audio() *audio.Buffer { return s.audio }
func (s *Selected) Sources() []Scored    { return []Scored{s.Clip} }
func (s *Selected) isSelection()         {}

func (s *Selected) Mode() string {
	if s.Truncated {
		return "single/truncated"
	}
	return "single"
}

// Composed is a concatenation of short candidates in score order
type Composed struct {
	Parts []Scored
	audio *audio.Buffer
}

func (c *Composed) Audio() *audio.Buffer { return c.audio }
func (c *Composed) Sources() []Scored    { return c.Parts }
func (c *Composed) Mode() string         { return fmt.Sprintf("composed/%d", len(c.Parts)) }
func (c *Composed) isSelection()         {}

// RefText joins the transcript text of a selection's source segments
func RefText(sel Selection) string {
	var parts []string
	for _, src := range sel.Sources() {
		for _, seg := range src.Segments {
			if text := strings.TrimSpace(seg.Text); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

// Selector picks the reference clip for one speaker
type Selector struct {
	minDuration float64
	maxDuration float64
}

// NewSelector creates a selector for references of [min, max] seconds
func NewSelector(minDuration, maxDuration float64) (*Selector, error) {
	if minDuration <= 0 {
		return nil, fmt.Errorf("min duration must be positive, got %f", minDuration)
	}
	if maxDuration < minDuration {
		return nil, fmt.Errorf("max duration (%f) must not be less than min duration (%f)", maxDuration, minDuration)
	}
	return &Selector{minDuration: minDuration, maxDuration: maxDuration}, nil
}

// Select applies the selection policy:
//  1. the best candidate with duration in [min, max];
//  2. otherwise the best candidate longer than max, truncated to its first max seconds;
//  3. otherwise a composition of the short candidates.
func (s *Selector) Select(candidates []Scored) (Selection, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	var inRange, tooLong []Scored
	for _, c := range candidates {
		d := c.Duration()
		switch {
		case d > s.maxDuration:
			tooLong = append(tooLong, c)
		case d >= s.minDuration:
			inRange = append(inRange, c)
		}
	}

	if best, ok := pickBest(inRange); ok {
		return &Selected{Clip: best, audio: best.Audio}, nil
	}

	if best, ok := pickBest(tooLong); ok {
		return &Selected{
			Clip:      best,
			Truncated: true,
			audio:     best.Audio.Prefix(s.maxDuration),
		}, nil
	}

	return Compose(candidates, s.minDuration, s.maxDuration)
}

// pickBest returns the highest ranked candidate
func pickBest(candidates []Scored) (Scored, bool) {
	if len(candidates) == 0 {
		return Scored{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if ranksBefore(c, best) {
			best = c
		}
	}
	return best, true
}

// Compose concatenates candidates in descending score order, without gaps,
// until the accumulated duration reaches minDuration, then truncates the
// result to maxDuration. When all candidates together are shorter than
// minDuration, all of them are used.
func Compose(candidates []Scored, minDuration, maxDuration float64) (*Composed, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	ordered := make([]Scored, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ranksBefore(ordered[i], ordered[j])
	})

	rate := ordered[0].Audio.SampleRate
	var parts []Scored
	var buffers []*audio.Buffer
	total := 0
	for _, c := range ordered {
		parts = append(parts, c)
		buffers = append(buffers, c.Audio)
		total += c.Audio.Len()
		if float64(total)/float64(rate) >= minDuration {
			break
		}
	}

	joined, err := audio.Concat(buffers...)
	if err != nil {
		return nil, fmt.Errorf("failed to concatenate clips: %w", err)
	}

	return &Composed{
		Parts: parts,
		audio: joined.Prefix(maxDuration),
	}, nil
}
