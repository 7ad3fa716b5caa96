package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skypro1111/refaudio/internal/quality"
	"github.com/skypro1111/refaudio/internal/reference"
)

var analyzeFlags struct {
	audio    string
	segments string
	speaker  string
	json     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score every candidate clip without writing references",
	Long: `Score every candidate clip and show which selection would be made,
without writing any files.

Examples:
  refaudio analyze --audio call.wav --segments segments.json
  refaudio analyze --audio call.wav --segments segments.json --speaker SPEAKER_01 --json`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.audio, "audio", "a", "", "Source recording (WAV)")
	f.StringVarP(&analyzeFlags.segments, "segments", "s", "", "Diarized transcript (JSON)")
	f.StringVar(&analyzeFlags.speaker, "speaker", "", "Only show this speaker")
	f.BoolVar(&analyzeFlags.json, "json", false, "Output as JSON")
	analyzeCmd.MarkFlagRequired("audio")
	analyzeCmd.MarkFlagRequired("segments")

	rootCmd.AddCommand(analyzeCmd)
}

// candidateReport is one scored candidate in analyze output
type candidateReport struct {
	Start    float64         `json:"start"`
	End      float64         `json:"end"`
	Duration float64         `json:"duration"`
	Score    float64         `json:"score"`
	Metrics  quality.Metrics `json:"metrics"`
	Text     string          `json:"text,omitempty"`
}

// speakerReport is the analysis of one speaker in analyze output
type speakerReport struct {
	Speaker    string            `json:"speaker"`
	Mode       string            `json:"mode,omitempty"`
	Duration   float64           `json:"duration,omitempty"`
	Candidates []candidateReport `json:"candidates"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog := initLogger(cfg.Logging)
	defer closeLog()

	segments, buf, err := loadInputs(logger, analyzeFlags.audio, analyzeFlags.segments)
	if err != nil {
		return err
	}

	extractor, err := reference.NewExtractor(logger, extractorConfig(cfg), discardWriter{}, nil)
	if err != nil {
		return err
	}

	analyses, err := extractor.Analyze(segments, buf)
	if err != nil {
		return err
	}

	var reports []speakerReport
	for _, a := range analyses {
		if analyzeFlags.speaker != "" && a.Speaker != analyzeFlags.speaker {
			continue
		}
		reports = append(reports, newSpeakerReport(a))
	}

	if analyzeFlags.speaker != "" && len(reports) == 0 {
		return fmt.Errorf("speaker %q not found in transcript", analyzeFlags.speaker)
	}

	out := cmd.OutOrStdout()
	if analyzeFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	return printReports(out, reports)
}

// discardWriter satisfies reference.Writer for runs that never write
type discardWriter struct{}

func (discardWriter) Write(context.Context, *reference.SpeakerReference) (string, error) {
	return "", nil
}

func (discardWriter) WriteMetadata(context.Context, *reference.Report) error {
	return nil
}

func newSpeakerReport(a reference.SpeakerAnalysis) speakerReport {
	r := speakerReport{Speaker: a.Speaker, Candidates: []candidateReport{}}
	if a.Selection != nil {
		r.Mode = a.Selection.Mode()
		r.Duration = a.Selection.Audio().Duration()
	}
	for _, c := range a.Candidates {
		seg := c.Segments[0]
		r.Candidates = append(r.Candidates, candidateReport{
			Start:    seg.Start,
			End:      seg.End,
			Duration: c.Duration(),
			Score:    c.Score,
			Metrics:  c.Metrics,
			Text:     seg.Text,
		})
	}
	return r
}

func printReports(w io.Writer, reports []speakerReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		if r.Mode == "" {
			fmt.Fprintf(tw, "%s\tno usable audio\n", r.Speaker)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2fs\n", r.Speaker, r.Mode, r.Duration)
		fmt.Fprintln(tw, "\tSTART\tDUR\tSCORE\tSPEECH\tSNR\tDBFS\tCLIP")
		for _, c := range r.Candidates {
			fmt.Fprintf(tw, "\t%.2f\t%.2f\t%.3f\t%.2f\t%.1f\t%.1f\t%.4f\n",
				c.Start, c.Duration, c.Score,
				c.Metrics.SpeechRatio, c.Metrics.SNRDB, c.Metrics.LoudnessDBFS, c.Metrics.ClippingFraction)
		}
	}
	return tw.Flush()
}
