package main

import (
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"

	"dlbench/internal/config"
	"dlbench/internal/download"

	"github.com/go-faster/jx"
	"github.com/spf13/cobra"
)

// getCommand constructs the 'get' subcommand that downloads the given URLs
// concurrently and prints their bodies, either raw or decoded as JSON or CSV.
func getCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <URL>...",
		Short: "Downloads URLs concurrently and prints their contents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := make([]string, 0, len(args))
			for _, arg := range args {
				u, err := download.NormalizeURL(arg)
				if err != nil {
					return exitCodeError{code: 2, err: err}
				}
				urls = append(urls, u)
			}

			d, err := newDownloader(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "content":
				bodies, err := d.Concurrent(cmd.Context(), urls)
				if err != nil {
					return err
				}
				for _, body := range bodies {
					if _, err := fmt.Fprintf(out, "%s\n", body); err != nil {
						return fmt.Errorf("could not write output: %w", err)
					}
				}
			case "json":
				items, err := d.GatherJSON(cmd.Context(), urls)
				if err != nil {
					return err
				}
				var e jx.Encoder
				e.SetIdent(2)
				e.Arr(func(e *jx.Encoder) {
					for _, item := range items {
						encodeAny(e, item)
					}
				})
				if _, err := fmt.Fprintln(out, e.String()); err != nil {
					return fmt.Errorf("could not write output: %w", err)
				}
			case "csv":
				delimiter, _ := cmd.Flags().GetString("delimiter")
				if utf8.RuneCountInString(delimiter) != 1 {
					return exitCodeError{code: 2, err: fmt.Errorf("delimiter must be one character, got %q", delimiter)}
				}
				r, _ := utf8.DecodeRuneInString(delimiter)

				tables, err := d.GatherCSV(cmd.Context(), urls, r)
				if err != nil {
					return err
				}
				for i, table := range tables {
					if _, err := fmt.Fprintf(out, "# %s\n", urls[i]); err != nil {
						return fmt.Errorf("could not write output: %w", err)
					}
					for _, record := range table {
						if _, err := fmt.Fprintf(out, "%q\n", record); err != nil {
							return fmt.Errorf("could not write output: %w", err)
						}
					}
				}
			default:
				return exitCodeError{code: 2, err: fmt.Errorf("unknown format %q", format)}
			}

			return nil
		},
	}
	cmd.Flags().String("format", "content", "output format: content, json or csv")
	cmd.Flags().String("delimiter", ",", "CSV field delimiter")

	return cmd
}

// encodeAny writes a value decoded from JSON back to e. Object keys are
// sorted.
func encodeAny(e *jx.Encoder, v any) {
	switch v := v.(type) {
	case nil:
		e.Null()
	case bool:
		e.Bool(v)
	case int64:
		e.Int64(v)
	case float64:
		e.Float64(v)
	case string:
		e.Str(v)
	case []any:
		e.Arr(func(e *jx.Encoder) {
			for _, item := range v {
				encodeAny(e, item)
			}
		})
	case map[string]any:
		e.Obj(func(e *jx.Encoder) {
			for _, key := range slices.Sorted(maps.Keys(v)) {
				e.Field(key, func(e *jx.Encoder) { encodeAny(e, v[key]) })
			}
		})
	default:
		e.Str(fmt.Sprint(v))
	}
}
