package main

import (
	"dlbench/internal/bench"
	"dlbench/internal/config"

	"github.com/spf13/cobra"
)

// compareCommand constructs the 'compare' subcommand that downloads the batch
// both ways and reports timings, first items and whether the results match.
func compareCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compares sequential and asynchronous downloads of the same batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			urls, err := batchFromFlags(cmd, cfg)
			if err != nil {
				return err
			}
			d, err := newDownloader(cfg)
			if err != nil {
				return err
			}

			return bench.Compare(cmd.Context(), d, urls, cmd.OutOrStdout())
		},
	}
	batchFlags(cmd)

	return cmd
}
