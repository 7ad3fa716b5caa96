package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skypro1111/refaudio/internal/audio"
	"github.com/skypro1111/refaudio/internal/config"
	"github.com/skypro1111/refaudio/internal/quality"
)

func TestExtractorConfigMatchesDefaults(t *testing.T) {
	got := extractorConfig(config.Default())

	if got.Analyzer != quality.DefaultAnalyzerConfig() {
		t.Errorf("Analyzer defaults differ:\n got %+v\nwant %+v", got.Analyzer, quality.DefaultAnalyzerConfig())
	}
	if got.Scorer != quality.DefaultScorerConfig() {
		t.Errorf("Scorer defaults differ:\n got %+v\nwant %+v", got.Scorer, quality.DefaultScorerConfig())
	}
	if got.Reference.MinDuration != 3 || got.Reference.MaxDuration != 10 {
		t.Errorf("Unexpected reference bounds: %+v", got.Reference)
	}
}

func TestInitLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refaudio.log")

	logger, closeLog := initLogger(config.LoggingConfig{
		Level:     "info",
		Format:    "json",
		Output:    path,
		MaxSizeMB: 1,
	})
	logger.Info("hello", "speaker", "A")
	logger.Debug("hidden")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %s", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["speaker"] != "A" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
}

func writeTestRecording(t *testing.T, dir string) (string, string) {
	t.Helper()

	const rate = 16000
	samples := make([]int16, 8*rate)
	for i := range samples {
		samples[i] = int16(0.2 * 32767 * math.Sin(2*math.Pi*220*float64(i)/rate))
	}

	audioPath := filepath.Join(dir, "call.wav")
	f, err := os.Create(audioPath)
	if err != nil {
		t.Fatalf("Failed to create recording: %v", err)
	}
	if err := audio.Encode(f, audio.NewBuffer(samples, rate)); err != nil {
		t.Fatalf("Failed to encode recording: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close recording: %v", err)
	}

	segmentsPath := filepath.Join(dir, "segments.json")
	segments := `{"segments": [
		{"start": 0.0, "end": 4.5, "speaker": "SPEAKER_00", "text": "good morning"},
		{"start": 4.5, "end": 8.0, "speaker": "SPEAKER_01", "text": "hello"}
	]}`
	if err := os.WriteFile(segmentsPath, []byte(segments), 0644); err != nil {
		t.Fatalf("Failed to write segments: %v", err)
	}

	return audioPath, segmentsPath
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	audioPath, segmentsPath := writeTestRecording(t, dir)
	outDir := filepath.Join(dir, "refs")
	metricsPath := filepath.Join(dir, "refaudio.prom")

	rootCmd.SetArgs([]string{
		"extract",
		"--audio", audioPath,
		"--segments", segmentsPath,
		"--out", outDir,
		"--metrics-file", metricsPath,
		"--log-level", "error",
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	for _, name := range []string{"SPEAKER_00.wav", "SPEAKER_01.wav", "ref_metadata.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("Expected metrics file: %v", err)
	}
	if !strings.Contains(string(data), `refaudio_speakers_processed_total{mode="single"} 2`) {
		t.Errorf("Unexpected metrics:\n%s", data)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetOut(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), serviceName+" ") {
		t.Errorf("Unexpected version output %q", out.String())
	}
}
