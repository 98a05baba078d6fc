package bench

import (
	"fmt"
	"io"
	"time"

	"dlbench/pkg/domain"
)

// WriteTiming writes t in the layout of the shell's time builtin:
//
//	real	0m1.234s
//	user	0m0.120s
//	sys	0m0.031s
func WriteTiming(w io.Writer, t domain.Timing) error {
	_, err := fmt.Fprintf(w, "\nreal\t%s\nuser\t%s\nsys\t%s\n",
		FormatDuration(t.Real), FormatDuration(t.User), FormatDuration(t.Sys))
	if err != nil {
		return fmt.Errorf("could not write timing: %w", err)
	}

	return nil
}

// WriteSummary writes s, one statistic per line.
func WriteSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w,
		"\nruns\t%d\nmin\t%s\nmax\t%s\nmean\t%s\nmedian\t%s\np95\t%s\nstddev\t%s\n",
		s.Count,
		FormatDuration(s.Min),
		FormatDuration(s.Max),
		FormatDuration(s.Mean),
		FormatDuration(s.Median),
		FormatDuration(s.P95),
		FormatDuration(s.StdDev),
	)
	if err != nil {
		return fmt.Errorf("could not write summary: %w", err)
	}

	return nil
}

// FormatDuration renders d as whole minutes and seconds with millisecond
// precision, e.g. 1m3.250s. Negative durations are clamped to zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Millisecond)
	minutes := d / time.Minute
	rest := d - minutes*time.Minute

	return fmt.Sprintf("%dm%.3fs", int64(minutes), rest.Seconds())
}
