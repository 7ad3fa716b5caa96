package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/skypro1111/refaudio/internal/config"
)

const (
	serviceName    = "refaudio"
	serviceVersion = "1.0.0"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Select per-speaker reference audio from diarized recordings",
	Long: `Select one short, clean reference clip per speaker from a recording
and its diarized transcript, for use as a voice-cloning prompt.

Each speaker's segments are measured for speech ratio, SNR, loudness and
clipping, scored, and the best clip of 3 to 10 seconds is written as WAV.
Speakers with only short segments get a composition of their best clips.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration file, or the defaults when none is given,
// and applies the persistent flag overrides
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// logConfig logs the configuration summary
func logConfig(logger *slog.Logger, cfg *config.Config) {
	logger.Info("Configuration loaded",
		slog.String("config_path", configPath),
		slog.Float64("min_duration", cfg.Reference.MinDuration),
		slog.Float64("max_duration", cfg.Reference.MaxDuration),
		slog.Int("concurrency", cfg.Reference.Concurrency),
		slog.Duration("frame", cfg.Analysis.GetFrameDuration()),
		slog.Duration("hop", cfg.Analysis.GetHopDuration()),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("log_level", cfg.Logging.Level),
	)
}
