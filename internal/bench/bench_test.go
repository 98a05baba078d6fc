package bench_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dlbench/internal/bench"
	"dlbench/pkg/domain"
	"dlbench/pkg/serrors"

	"github.com/stretchr/testify/require"
)

type stubDownloader struct {
	seq, conc       [][]byte
	seqErr, concErr error
}

func (s stubDownloader) Sequential(context.Context, []string) ([][]byte, error) {
	return s.seq, s.seqErr
}

func (s stubDownloader) Concurrent(context.Context, []string) ([][]byte, error) {
	return s.conc, s.concErr
}

func TestMeasure(t *testing.T) {
	timing, err := bench.Measure(context.Background(), func(context.Context) error {
		time.Sleep(20 * time.Millisecond)

		return nil
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, timing.Real, 20*time.Millisecond)
	require.GreaterOrEqual(t, timing.User, time.Duration(0))
	require.GreaterOrEqual(t, timing.Sys, time.Duration(0))
}

func TestMeasure_ReturnsTimingOnError(t *testing.T) {
	boom := errors.New("boom")
	timing, err := bench.Measure(context.Background(), func(context.Context) error {
		time.Sleep(5 * time.Millisecond)

		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Positive(t, timing.Real)
}

func TestCompare_Identical(t *testing.T) {
	body := []byte(`{"id": 1}`)
	d := stubDownloader{
		seq:  [][]byte{body, body},
		conc: [][]byte{body, body},
	}

	var out bytes.Buffer
	require.NoError(t, bench.Compare(context.Background(), d, []string{"a", "b"}, &out))

	lines := strings.Split(out.String(), "\n")
	require.Regexp(t, `^Elapsed time for sequential downloads: [0-9.e-]+ seconds$`, lines[0])
	require.Regexp(t, `^Elapsed time for asynchronous downloads: [0-9.e-]+ seconds$`, lines[1])

	rest := strings.Join(lines[2:], "\n")
	require.Equal(t, "\n\n"+
		"Sequential downloads, first item:\n{\"id\": 1}\n"+
		"\n\n"+
		"Asynchronous downloads, first item:\n{\"id\": 1}\n"+
		"\n\n"+
		"Both sets of downloads are identical\n", rest)
}

func TestCompare_NotIdentical(t *testing.T) {
	d := stubDownloader{
		seq:  [][]byte{[]byte("a")},
		conc: [][]byte{[]byte("a"), {}},
	}

	var out bytes.Buffer
	require.NoError(t, bench.Compare(context.Background(), d, []string{"a", "b"}, &out))
	require.True(t, strings.HasSuffix(out.String(), "The two sets of downloads are not identical\n"))
}

func TestCompare_EmptySets(t *testing.T) {
	d := stubDownloader{seq: [][]byte{}, conc: [][]byte{}}

	var out bytes.Buffer
	require.NoError(t, bench.Compare(context.Background(), d, nil, &out))
	require.Contains(t, out.String(), "Sequential downloads, first item:\n<none>\n")
	require.Contains(t, out.String(), "Asynchronous downloads, first item:\n<none>\n")
	require.Contains(t, out.String(), "Both sets of downloads are identical")
}

func TestCompare_Errors(t *testing.T) {
	unavailable := serrors.With(serrors.ErrUnavailable, "down")

	var out bytes.Buffer
	err := bench.Compare(context.Background(), stubDownloader{seqErr: unavailable}, nil, &out)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.Empty(t, out.String())

	out.Reset()
	err = bench.Compare(context.Background(), stubDownloader{concErr: unavailable}, nil, &out)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.Contains(t, out.String(), "sequential downloads")
	require.NotContains(t, out.String(), "asynchronous downloads")
}

func TestIdentical(t *testing.T) {
	require.True(t, bench.Identical(nil, [][]byte{}))
	require.True(t, bench.Identical([][]byte{[]byte("x")}, [][]byte{[]byte("x")}))
	require.False(t, bench.Identical([][]byte{[]byte("x")}, [][]byte{[]byte("y")}))
	require.False(t, bench.Identical([][]byte{[]byte("x")}, [][]byte{[]byte("x"), {}}))
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                   "0m0.000s",
		1234 * time.Millisecond:             "0m1.234s",
		31 * time.Millisecond:               "0m0.031s",
		time.Minute + 3250*time.Millisecond: "1m3.250s",
		125*time.Minute + 500*time.Microsecond + 59*time.Second: "125m59.001s",
		-time.Second: "0m0.000s",
	}

	for d, want := range cases {
		require.Equal(t, want, bench.FormatDuration(d), d.String())
	}
}

func TestWriteTiming(t *testing.T) {
	var out bytes.Buffer
	err := bench.WriteTiming(&out, domain.Timing{
		Real: 1234 * time.Millisecond,
		User: 120 * time.Millisecond,
		Sys:  31 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, "\nreal\t0m1.234s\nuser\t0m0.120s\nsys\t0m0.031s\n", out.String())
}

func TestRepeatAndSummarize(t *testing.T) {
	var calls int
	var progress bytes.Buffer
	timings, err := bench.Repeat(context.Background(), 5, func(context.Context) error {
		calls++
		time.Sleep(time.Duration(calls) * time.Millisecond)

		return nil
	}, bench.RepeatOptions{Progress: &progress, Description: "sequential"})
	require.NoError(t, err)
	require.Len(t, timings, 5)
	require.Equal(t, 5, calls)

	s, err := bench.Summarize(timings)
	require.NoError(t, err)
	require.Equal(t, 5, s.Count)
	require.LessOrEqual(t, s.Min, s.Median)
	require.LessOrEqual(t, s.Median, s.Max)
	require.LessOrEqual(t, s.Min, s.Mean)
	require.LessOrEqual(t, s.Mean, s.Max)
	require.LessOrEqual(t, s.P95, s.Max)

	var out bytes.Buffer
	require.NoError(t, bench.WriteSummary(&out, s))
	require.Contains(t, out.String(), "runs\t5\n")
	require.Contains(t, out.String(), "p95\t")
}

func TestSummarize_KnownValues(t *testing.T) {
	timings := []domain.Timing{
		{Real: 1 * time.Second},
		{Real: 2 * time.Second},
		{Real: 3 * time.Second},
		{Real: 4 * time.Second},
	}

	s, err := bench.Summarize(timings)
	require.NoError(t, err)
	require.Equal(t, time.Second, s.Min)
	require.Equal(t, 4*time.Second, s.Max)
	require.Equal(t, 2500*time.Millisecond, s.Mean)
	require.Equal(t, 2500*time.Millisecond, s.Median)
	require.Equal(t, 4*time.Second, s.P95)
	require.InDelta(t, 1.118, s.StdDev.Seconds(), 0.001)
}

func TestRepeat_Errors(t *testing.T) {
	_, err := bench.Repeat(context.Background(), 0, func(context.Context) error { return nil }, bench.RepeatOptions{})
	require.ErrorIs(t, err, serrors.ErrBadRequest)

	boom := errors.New("boom")
	var calls int
	timings, err := bench.Repeat(context.Background(), 3, func(context.Context) error {
		calls++
		if calls == 2 {
			return boom
		}

		return nil
	}, bench.RepeatOptions{})
	require.ErrorIs(t, err, boom)
	require.Len(t, timings, 1)

	_, err = bench.Summarize(nil)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}
