package main

import (
	"context"
	"fmt"

	"dlbench/internal/bench"
	"dlbench/internal/config"
	"dlbench/pkg/domain"
	"dlbench/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func modeArg(args []string) (domain.Mode, error) {
	mode, err := domain.ParseMode(args[0])
	if err != nil {
		return "", exitCodeError{code: 2, err: err}
	}

	return mode, nil
}

// downloadCommand constructs the 'download' subcommand. It downloads the batch
// in the given mode and prints nothing, so an outer timer measures only the
// downloads.
func downloadCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "download <sequential|asynchronous>",
		Short:     "Downloads the batch in one mode without output",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.ModeSequential), string(domain.ModeAsynchronous)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modeArg(args)
			if err != nil {
				return err
			}
			urls, err := batchFromFlags(cmd, cfg)
			if err != nil {
				return err
			}
			d, err := newDownloader(cfg)
			if err != nil {
				return err
			}

			bodies, err := d.Run(cmd.Context(), mode, urls)
			if err != nil {
				return fmt.Errorf("could not download: %w", err)
			}
			logger.Debug(cmd.Context(), "downloads finished",
				zap.String("mode", string(mode)), zap.Int("downloads", len(bodies)))

			return nil
		},
	}
	batchFlags(cmd)

	return cmd
}

// benchCommand constructs the 'bench' subcommand that times repeated runs of
// one mode in-process and prints the timing of each run plus a summary.
func benchCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "bench <sequential|asynchronous>",
		Short:     "Times repeated downloads of the batch in one mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.ModeSequential), string(domain.ModeAsynchronous)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modeArg(args)
			if err != nil {
				return err
			}
			urls, err := batchFromFlags(cmd, cfg)
			if err != nil {
				return err
			}
			d, err := newDownloader(cfg)
			if err != nil {
				return err
			}

			repeat, _ := cmd.Flags().GetInt("repeat")
			if repeat == 0 {
				repeat = cfg.Benchmark.Repeat
			}
			opts := bench.RepeatOptions{Description: string(mode)}
			if progress, _ := cmd.Flags().GetBool("progress"); progress {
				opts.Progress = cmd.ErrOrStderr()
			}

			timings, err := bench.Repeat(cmd.Context(), repeat, func(ctx context.Context) error {
				_, err := d.Run(ctx, mode, urls)

				return err
			}, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range timings {
				if err := bench.WriteTiming(out, t); err != nil {
					return err
				}
			}
			if len(timings) < 2 {
				return nil
			}

			summary, err := bench.Summarize(timings)
			if err != nil {
				return err
			}

			return bench.WriteSummary(out, summary)
		},
	}
	batchFlags(cmd)
	cmd.Flags().Int("repeat", 0, "number of measured runs (default from config)")
	cmd.Flags().Bool("progress", false, "show a progress bar on stderr")

	return cmd
}
