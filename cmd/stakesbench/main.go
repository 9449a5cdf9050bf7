// Command stakesbench runs the crisis press-release experiment: it
// prompts models to draft releases across the configured cross-product,
// scores each draft with a judge model, and appends results to the
// output directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stakesbench",
		Short:         "Crisis press-release disclosure experiment harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPlanCmd())
	return cmd
}
