package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahrav/stakesbench/internal/llm"
	"github.com/ahrav/stakesbench/internal/llm/calllog"
	"github.com/ahrav/stakesbench/internal/llm/configuration"
	"github.com/ahrav/stakesbench/internal/runner"
	"github.com/ahrav/stakesbench/internal/sink"
)

// runFlags are the command-line overrides layered on top of the
// configuration file.
type runFlags struct {
	configPath  string
	smokeTest   bool
	runs        int
	batchSize   int
	concurrency int
	rpm         int
	rubric      string
	outDir      string
	scenarios   []string
	models      []string
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the experiment cross-product",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			return runExperiment(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML configuration file")
	cmd.Flags().BoolVar(&flags.smokeTest, "smoke-test", false, "run a single cell end to end")
	cmd.Flags().IntVar(&flags.runs, "runs", 0, "runs per condition (overrides config)")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", 0, "cells per batch (overrides config)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "max in-flight requests (overrides config)")
	cmd.Flags().IntVar(&flags.rpm, "rpm", -1, "requests-per-minute ceiling, 0 for unlimited (overrides config)")
	cmd.Flags().StringVar(&flags.rubric, "rubric", "", "judge rubric: facts or measurement (overrides config)")
	cmd.Flags().StringVar(&flags.outDir, "out-dir", "", "output directory (overrides config)")
	cmd.Flags().StringSliceVar(&flags.scenarios, "scenarios", nil, "scenario ids to run (default all)")
	cmd.Flags().StringSliceVar(&flags.models, "models", nil, "model ids to run (default all)")

	return cmd
}

// loadConfig builds the effective configuration from defaults, the
// optional file, the environment, and finally explicit flags.
func loadConfig(cmd *cobra.Command, flags *runFlags) (*configuration.Config, error) {
	cfg, err := configuration.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.smokeTest {
		cfg.Experiment.SmokeTest = true
	}
	if flags.runs > 0 {
		cfg.Experiment.RunsPerCell = flags.runs
	}
	if flags.batchSize > 0 {
		cfg.Experiment.BatchSize = flags.batchSize
	}
	if flags.concurrency > 0 {
		cfg.Experiment.MaxConcurrent = flags.concurrency
	}
	if cmd.Flags().Changed("rpm") && flags.rpm >= 0 {
		cfg.RateLimit.MaxPerMinute = flags.rpm
	}
	if flags.rubric != "" {
		cfg.Experiment.Rubric = flags.rubric
	}
	if flags.outDir != "" {
		cfg.Output.Dir = flags.outDir
	}
	if len(flags.scenarios) > 0 {
		cfg.Experiment.Scenarios = flags.scenarios
	}
	if len(flags.models) > 0 {
		cfg.Experiment.Models = flags.models
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runExperiment(cmd *cobra.Command, cfg *configuration.Config) error {
	logger := newLogger(cfg.Observability.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	callLog, err := calllog.Open(filepath.Join(cfg.Output.Dir, cfg.Output.CallLog))
	if err != nil {
		return fmt.Errorf("open call log: %w", err)
	}
	defer callLog.Close()

	resultSink, err := sink.Open(cfg.Output.Dir, cfg.Output.ResultsCSV, cfg.Output.RecordsJSONL)
	if err != nil {
		return err
	}
	defer resultSink.Close()

	client, err := llm.NewClient(cfg,
		llm.WithLogger(logger),
		llm.WithCallLog(callLog),
	)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	orch := runner.NewOrchestrator(cfg, client, resultSink, logger)
	summary, err := orch.Run(ctx)
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	}
	return err
}

// newLogger builds the process-wide structured logger.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
