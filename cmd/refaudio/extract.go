package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skypro1111/refaudio/internal/metrics"
	"github.com/skypro1111/refaudio/internal/reference"
)

var extractFlags struct {
	audio       string
	segments    string
	out         string
	metricsFile string
	concurrency int
	minDuration float64
	maxDuration float64
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Write one reference WAV per speaker",
	Long: `Write one reference WAV per speaker and a metadata file describing
where every reference came from.

Examples:
  refaudio extract --audio call.wav --segments segments.json --out refs/
  refaudio extract -c configs/config.yaml --audio call.wav --segments segments.json --metrics-file refaudio.prom`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractFlags.audio, "audio", "a", "", "Source recording (WAV)")
	f.StringVarP(&extractFlags.segments, "segments", "s", "", "Diarized transcript (JSON)")
	f.StringVarP(&extractFlags.out, "out", "o", "", "Output directory (overrides output.dir)")
	f.StringVar(&extractFlags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file (overrides metrics.textfile)")
	f.IntVar(&extractFlags.concurrency, "concurrency", 0, "Speakers processed in parallel (overrides reference.concurrency)")
	f.Float64Var(&extractFlags.minDuration, "min-duration", 0, "Minimum reference duration in seconds (overrides reference.min_duration)")
	f.Float64Var(&extractFlags.maxDuration, "max-duration", 0, "Maximum reference duration in seconds (overrides reference.max_duration)")
	extractCmd.MarkFlagRequired("audio")
	extractCmd.MarkFlagRequired("segments")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if extractFlags.out != "" {
		cfg.Output.Dir = extractFlags.out
	}
	if extractFlags.metricsFile != "" {
		cfg.Metrics.Textfile = extractFlags.metricsFile
	}
	if extractFlags.concurrency > 0 {
		cfg.Reference.Concurrency = extractFlags.concurrency
	}
	if extractFlags.minDuration > 0 {
		cfg.Reference.MinDuration = extractFlags.minDuration
	}
	if extractFlags.maxDuration > 0 {
		cfg.Reference.MaxDuration = extractFlags.maxDuration
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog := initLogger(cfg.Logging)
	defer closeLog()

	logger.Info("Extraction starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
	)
	logConfig(logger, cfg)

	segments, buf, err := loadInputs(logger, extractFlags.audio, extractFlags.segments)
	if err != nil {
		logger.Error("Failed to load inputs", slog.String("error", err.Error()))
		return err
	}

	writer, err := reference.NewFileWriter(cfg.Output.Dir, cfg.Output.MetadataFile)
	if err != nil {
		logger.Error("Failed to prepare output", slog.String("error", err.Error()))
		return err
	}

	appMetrics := metrics.NewMetrics()

	extractor, err := reference.NewExtractor(logger, extractorConfig(cfg), writer, appMetrics)
	if err != nil {
		logger.Error("Failed to create extractor", slog.String("error", err.Error()))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := extractor.Run(ctx, segments, buf)

	if cfg.Metrics.Textfile != "" {
		if err := appMetrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("Failed to export metrics", slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		return runErr
	}

	for _, spk := range report.FailedSpeakers() {
		logger.Error("No reference produced",
			slog.String("speaker", spk),
			slog.String("error", report.Failures[spk].Error()),
		)
	}

	return report.Err()
}
