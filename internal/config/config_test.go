package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default configuration is invalid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid configuration",
			modify: func(c *Config) {},
		},
		{
			name:        "max below min",
			modify:      func(c *Config) { c.Reference.MinDuration, c.Reference.MaxDuration = 10, 3 },
			expectError: true,
			errorMsg:    "max_duration",
		},
		{
			name:        "zero min duration",
			modify:      func(c *Config) { c.Reference.MinDuration = 0 },
			expectError: true,
			errorMsg:    "min_duration must be positive",
		},
		{
			name:        "zero concurrency",
			modify:      func(c *Config) { c.Reference.Concurrency = 0 },
			expectError: true,
			errorMsg:    "concurrency must be at least 1",
		},
		{
			name:        "hop longer than frame",
			modify:      func(c *Config) { c.Analysis.HopMs = 50 },
			expectError: true,
			errorMsg:    "hop_ms",
		},
		{
			name:        "clip level above full scale",
			modify:      func(c *Config) { c.Analysis.ClipLevel = 1.5 },
			expectError: true,
			errorMsg:    "clip_level",
		},
		{
			name:        "negative weight",
			modify:      func(c *Config) { c.Scoring.Weights.SNR = -1 },
			expectError: true,
			errorMsg:    "weights cannot be negative",
		},
		{
			name:        "inverted snr range",
			modify:      func(c *Config) { c.Scoring.SNRFloorDB = 30 },
			expectError: true,
			errorMsg:    "snr_ceil_db",
		},
		{
			name:        "empty output dir",
			modify:      func(c *Config) { c.Output.Dir = "" },
			expectError: true,
			errorMsg:    "dir cannot be empty",
		},
		{
			name:        "invalid log level",
			modify:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
		check       func(t *testing.T, c *Config)
	}{
		{
			name: "full config file",
			configYAML: `
reference:
  min_duration: 4.0
  max_duration: 8.0
  concurrency: 2
analysis:
  frame_ms: 20
  hop_ms: 10
  noise_percentile: 15
  speech_margin_db: 6
  speech_floor_db: -45
  peak_headroom_db: 2
  silence_floor_db: -60
  silence_db: -90
  clip_level: 0.99
  snr_ceiling_db: 50
scoring:
  weights:
    speech_ratio: 0.4
    snr: 0.2
    loudness: 0.15
    duration: 0.15
    clipping: 0.3
output:
  dir: "/tmp/refs"
  metadata_file: "meta.json"
logging:
  level: "debug"
  format: "json"
  output: "stdout"
metrics:
  textfile: "/var/lib/node_exporter/refaudio.prom"
`,
			check: func(t *testing.T, c *Config) {
				if c.Reference.MinDuration != 4 || c.Reference.MaxDuration != 8 {
					t.Errorf("Unexpected bounds: %+v", c.Reference)
				}
				if c.Analysis.GetHopDuration() != 10*time.Millisecond {
					t.Errorf("Expected 10ms hop, got %v", c.Analysis.GetHopDuration())
				}
				if c.Scoring.Weights.Clipping != 0.3 {
					t.Errorf("Expected clipping weight 0.3, got %f", c.Scoring.Weights.Clipping)
				}
				if c.Metrics.Textfile == "" {
					t.Error("Expected metrics textfile to be set")
				}
			},
		},
		{
			name: "partial file keeps defaults",
			configYAML: `
reference:
  max_duration: 12.0
`,
			check: func(t *testing.T, c *Config) {
				if c.Reference.MaxDuration != 12 {
					t.Errorf("Expected max_duration 12, got %f", c.Reference.MaxDuration)
				}
				if c.Reference.MinDuration != 3 {
					t.Errorf("Expected default min_duration 3, got %f", c.Reference.MinDuration)
				}
				if c.Scoring.Weights.SpeechRatio != 0.35 {
					t.Errorf("Expected default weight, got %f", c.Scoring.Weights.SpeechRatio)
				}
				if c.Output.MetadataFile != "ref_metadata.json" {
					t.Errorf("Expected default metadata file, got %s", c.Output.MetadataFile)
				}
			},
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
reference:
  min_duration: invalid_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "invalid values",
			configYAML: `
reference:
  min_duration: 12.0
  max_duration: 10.0
`,
			expectError: true,
			errorMsg:    "config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if tt.check != nil {
				tt.check(t, config)
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Fatalf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	ref := ReferenceConfig{
		MinDuration: 3.5,
		MaxDuration: 10.0,
	}

	if ref.GetMinDuration() != 3500*time.Millisecond {
		t.Errorf("Expected 3.5 seconds, got %v", ref.GetMinDuration())
	}

	if ref.GetMaxDuration() != 10*time.Second {
		t.Errorf("Expected 10 seconds, got %v", ref.GetMaxDuration())
	}

	analysis := AnalysisConfig{
		FrameMs: 25,
		HopMs:   10,
	}

	if analysis.GetFrameDuration() != 25*time.Millisecond {
		t.Errorf("Expected 25ms, got %v", analysis.GetFrameDuration())
	}

	if analysis.GetHopDuration() != 10*time.Millisecond {
		t.Errorf("Expected 10ms, got %v", analysis.GetHopDuration())
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{
			name: "valid json to stdout",
			config: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			valid: true,
		},
		{
			name: "valid text to rotated file",
			config: LoggingConfig{
				Level:      "debug",
				Format:     "text",
				Output:     "/var/log/refaudio.log",
				MaxSizeMB:  50,
				MaxBackups: 5,
			},
			valid: true,
		},
		{
			name: "invalid log level",
			config: LoggingConfig{
				Level:  "trace",
				Format: "json",
				Output: "stdout",
			},
			valid: false,
		},
		{
			name: "invalid format",
			config: LoggingConfig{
				Level:  "info",
				Format: "xml",
				Output: "stdout",
			},
			valid: false,
		},
		{
			name: "negative rotation",
			config: LoggingConfig{
				Level:      "info",
				Format:     "json",
				Output:     "app.log",
				MaxBackups: -1,
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}
