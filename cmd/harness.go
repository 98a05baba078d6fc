package main

import (
	"dlbench/internal/config"
	"dlbench/internal/harness"

	"github.com/spf13/cobra"
)

// harnessCommand constructs the 'harness' subcommand that re-runs this binary
// for compare and both timed download modes, writing results files.
func harnessCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harness",
		Short: "Runs the full benchmark and stores the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resultsDir, _ := cmd.Flags().GetString("results")
			if resultsDir == "" {
				resultsDir = cfg.Benchmark.ResultsDir
			}
			configPath, _ := cmd.Flags().GetString("config")

			err := harness.New(harness.Options{
				ConfigPath: configPath,
				ResultsDir: resultsDir,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			}).Run(cmd.Context())
			if err != nil {
				return exitCodeError{code: harness.ExitCode(err), err: err}
			}

			return nil
		},
	}
	cmd.Flags().String("results", "", "results directory (default from config)")

	return cmd
}
