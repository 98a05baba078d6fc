package bench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"dlbench/pkg/domain"
	"dlbench/pkg/logger"

	"go.uber.org/zap"
)

// Downloader is the pair of strategies Compare times against each other.
type Downloader interface {
	Sequential(ctx context.Context, urls []string) ([][]byte, error)
	Concurrent(ctx context.Context, urls []string) ([][]byte, error)
}

// Compare downloads urls sequentially and then concurrently, prints how long
// each took, the first item of each set and whether both sets are identical.
func Compare(ctx context.Context, d Downloader, urls []string, w io.Writer) error {
	var seq, conc [][]byte

	timing, err := Measure(ctx, func(ctx context.Context) error {
		var err error
		seq, err = d.Sequential(ctx, urls)

		return err
	})
	if err != nil {
		return fmt.Errorf("could not run sequential downloads: %w", err)
	}
	logger.Debug(ctx, "sequential downloads finished", zap.Int("downloads", len(seq)), zap.Duration("real", timing.Real))
	if _, err := fmt.Fprintf(w, "Elapsed time for %s downloads: %s seconds\n",
		domain.ModeSequential, formatSeconds(timing)); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}

	timing, err = Measure(ctx, func(ctx context.Context) error {
		var err error
		conc, err = d.Concurrent(ctx, urls)

		return err
	})
	if err != nil {
		return fmt.Errorf("could not run asynchronous downloads: %w", err)
	}
	logger.Debug(ctx, "asynchronous downloads finished", zap.Int("downloads", len(conc)), zap.Duration("real", timing.Real))

	ew := &errWriter{w: w}
	ew.printf("Elapsed time for %s downloads: %s seconds\n", domain.ModeAsynchronous, formatSeconds(timing))
	ew.printf("\n\n")
	ew.printf("Sequential downloads, first item:\n%s\n", firstItem(seq))
	ew.printf("\n\n")
	ew.printf("Asynchronous downloads, first item:\n%s\n", firstItem(conc))
	ew.printf("\n\n")
	if Identical(seq, conc) {
		ew.printf("Both sets of downloads are identical\n")
	} else {
		ew.printf("The two sets of downloads are not identical\n")
	}
	if ew.err != nil {
		return fmt.Errorf("could not write report: %w", ew.err)
	}

	return nil
}

// Identical reports whether a and b hold the same bodies in the same order.
func Identical(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

func firstItem(set [][]byte) string {
	if len(set) == 0 {
		return "<none>"
	}

	return string(set[0])
}

func formatSeconds(t domain.Timing) string {
	return strconv.FormatFloat(t.Real.Seconds(), 'f', -1, 64)
}

// errWriter keeps the first write error and skips every later write.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
