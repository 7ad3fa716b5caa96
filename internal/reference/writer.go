package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skypro1111/refaudio/internal/audio"
	"github.com/skypro1111/refaudio/internal/quality"
)

// SpeakerReference is the final reference audio chosen for one speaker
type SpeakerReference struct {
	Speaker   string
	Audio     *audio.Buffer
	Duration  float64
	Selection Selection
	Metrics   quality.Metrics // measured on the final audio
	Score     float64         // score of the final audio
}

// SourceSpan is a transcript span a reference was taken from
type SourceSpan struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text,omitempty"`
}

// Artifact is a written reference, addressable by path
type Artifact struct {
	Speaker  string          `json:"-"`
	Path     string          `json:"path"`
	Duration float64         `json:"duration"`
	Mode     string          `json:"mode"`
	RefText  string          `json:"ref_text"`
	Score    float64         `json:"score"`
	Metrics  quality.Metrics `json:"metrics"`
	Sources  []SourceSpan    `json:"sources"`
}

// newArtifact describes a reference written at path
func newArtifact(ref *SpeakerReference, path string) *Artifact {
	var sources []SourceSpan
	for _, src := range ref.Selection.Sources() {
		for _, seg := range src.Segments {
			sources = append(sources, SourceSpan{Start: seg.Start, End: seg.End, Text: seg.Text})
		}
	}

	return &Artifact{
		Speaker:  ref.Speaker,
		Path:     path,
		Duration: ref.Duration,
		Mode:     ref.Selection.Mode(),
		RefText:  RefText(ref.Selection),
		Score:    ref.Score,
		Metrics:  ref.Metrics,
		Sources:  sources,
	}
}

// Writer stores reference audio and the run metadata
type Writer interface {
	// Write stores one speaker's reference and returns its path. A failed
	// write must leave nothing behind for that speaker.
	Write(ctx context.Context, ref *SpeakerReference) (string, error)
	// WriteMetadata stores the description of every written reference
	WriteMetadata(ctx context.Context, report *Report) error
}

// FileWriter writes references as WAV files into a directory
type FileWriter struct {
	dir          string
	metadataFile string
}

// NewFileWriter creates the output directory and returns a writer for it.
// An empty metadataFile disables metadata output.
func NewFileWriter(dir, metadataFile string) (*FileWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &FileWriter{dir: dir, metadataFile: metadataFile}, nil
}

// Dir returns the output directory
func (w *FileWriter) Dir() string {
	return w.dir
}

// Write encodes the reference to <dir>/<speaker>.wav through a temporary
// file that is renamed into place only after a complete write
func (w *FileWriter) Write(ctx context.Context, ref *SpeakerReference) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := FileName(ref.Speaker) + ".wav"
	path := filepath.Join(w.dir, name)

	tmp, err := os.CreateTemp(w.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := audio.Encode(tmp, ref.Audio); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move reference into place: %w", err)
	}

	return path, nil
}

// metadata is the layout of the metadata file
type metadata struct {
	RunID      string               `json:"run_id"`
	CreatedAt  time.Time            `json:"created_at"`
	SampleRate int                  `json:"sample_rate"`
	Speakers   map[string]*Artifact `json:"speakers"`
	Skipped    []string             `json:"skipped,omitempty"`
	Failed     []string             `json:"failed,omitempty"`
}

// WriteMetadata writes the metadata file atomically
func (w *FileWriter) WriteMetadata(ctx context.Context, report *Report) error {
	if w.metadataFile == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := metadata{
		RunID:      report.RunID,
		CreatedAt:  time.Now().UTC(),
		SampleRate: report.SampleRate,
		Speakers:   report.References,
		Skipped:    report.Skipped,
		Failed:     report.FailedSpeakers(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	path := filepath.Join(w.dir, w.metadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move metadata into place: %w", err)
	}
	return nil
}

// FileName maps a speaker label to a safe file stem. Labels that need
// rewriting get a hash suffix so distinct speakers never share a file.
func FileName(speaker string) string {
	var b strings.Builder
	for _, r := range speaker {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	name := b.String()
	if name == speaker && name != "" {
		return name
	}

	h := fnv.New32a()
	h.Write([]byte(speaker))
	if name == "" {
		name = "speaker"
	}
	return fmt.Sprintf("%s-%08x", name, h.Sum32())
}
