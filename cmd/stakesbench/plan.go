package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/stakesbench/internal/llm/configuration"
	"github.com/ahrav/stakesbench/internal/runner"
)

// newPlanCmd prints the enumerated cross-product without issuing any
// requests. Useful for sizing a run before spending tokens.
func newPlanCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the enumerated experiment cells without running them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigForPlan(&flags)
			if err != nil {
				return err
			}
			plan, err := runner.BuildPlan(cfg)
			if err != nil {
				return err
			}
			cells, err := plan.Enumerate()
			if err != nil {
				return err
			}
			for _, cell := range cells {
				fmt.Fprintln(cmd.OutOrStdout(), cell.Key())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d cells\n", len(cells))
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML configuration file")
	cmd.Flags().BoolVar(&flags.smokeTest, "smoke-test", false, "collapse to a single cell")
	cmd.Flags().IntVar(&flags.runs, "runs", 0, "runs per condition (overrides config)")
	cmd.Flags().StringSliceVar(&flags.scenarios, "scenarios", nil, "scenario ids (default all)")
	cmd.Flags().StringSliceVar(&flags.models, "models", nil, "model ids (default all)")

	return cmd
}

// loadConfigForPlan overlays plan-relevant flags only; no API key is
// required to enumerate.
func loadConfigForPlan(flags *runFlags) (*configuration.Config, error) {
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
	if len(flags.scenarios) > 0 {
		cfg.Experiment.Scenarios = flags.scenarios
	}
	if len(flags.models) > 0 {
		cfg.Experiment.Models = flags.models
	}
	return cfg, nil
}
