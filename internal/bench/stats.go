package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"dlbench/pkg/domain"
	"dlbench/pkg/serrors"

	"github.com/montanaflynn/stats"
	"github.com/schollz/progressbar/v3"
)

// Summary describes the distribution of the real durations of repeated runs.
type Summary struct {
	Count  int
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	Median time.Duration
	P95    time.Duration
	StdDev time.Duration
}

// RepeatOptions configure Repeat.
type RepeatOptions struct {
	// Progress, when set, receives a progress bar advanced after every run.
	Progress io.Writer
	// Description labels the progress bar.
	Description string
}

// Repeat measures fn n times in a row and returns every Timing. It stops at
// the first failure.
func Repeat(
	ctx context.Context,
	n int,
	fn func(ctx context.Context) error,
	opts RepeatOptions,
) ([]domain.Timing, error) {
	if n < 1 {
		return nil, serrors.With(serrors.ErrBadRequest, "repeat count must be at least 1, got %d", n)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions64(
			int64(n),
			progressbar.OptionSetDescription(opts.Description),
			progressbar.OptionShowDescriptionAtLineEnd(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(opts.Progress, "\n")
			}),
			progressbar.OptionSetWriter(opts.Progress),
		)
	}

	timings := make([]domain.Timing, 0, n)
	for i := 0; i < n && ctx.Err() == nil; i++ {
		t, err := Measure(ctx, fn)
		if err != nil {
			return timings, fmt.Errorf("run %d of %d failed: %w", i+1, n, err)
		}
		timings = append(timings, t)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if err := ctx.Err(); err != nil {
		return timings, fmt.Errorf("repeat interrupted: %w", err)
	}

	return timings, nil
}

// Summarize computes the distribution of the real durations in timings.
func Summarize(timings []domain.Timing) (Summary, error) {
	if len(timings) == 0 {
		return Summary{}, serrors.With(serrors.ErrBadRequest, "no timings to summarize")
	}

	data := make(stats.Float64Data, len(timings))
	for i, t := range timings {
		data[i] = t.Real.Seconds()
	}

	var (
		s   = Summary{Count: len(timings)}
		err error
		v   float64
	)
	for _, f := range []struct {
		dst  *time.Duration
		calc func() (float64, error)
	}{
		{&s.Min, func() (float64, error) { return stats.Min(data) }},
		{&s.Max, func() (float64, error) { return stats.Max(data) }},
		{&s.Mean, func() (float64, error) { return stats.Mean(data) }},
		{&s.Median, func() (float64, error) { return stats.Median(data) }},
		{&s.P95, func() (float64, error) { return stats.PercentileNearestRank(data, 95) }},
		{&s.StdDev, func() (float64, error) { return stats.StandardDeviation(data) }},
	} {
		if v, err = f.calc(); err != nil {
			return Summary{}, fmt.Errorf("could not summarize timings: %w", err)
		}
		*f.dst = seconds(v)
	}

	return s, nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
