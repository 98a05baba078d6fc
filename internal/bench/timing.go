// Package bench measures download strategies the way the shell's time
// builtin would and renders the reports written to the results files.
package bench

import (
	"context"
	"time"

	"dlbench/pkg/domain"
)

// Measure runs fn and reports its wall-clock time together with the CPU time
// the process spent in user and kernel mode meanwhile. The Timing is returned
// even when fn fails.
func Measure(ctx context.Context, fn func(ctx context.Context) error) (domain.Timing, error) {
	user0, sys0 := cpuTime()
	start := time.Now()

	err := fn(ctx)

	elapsed := time.Since(start)
	user1, sys1 := cpuTime()

	return domain.Timing{
		Real: elapsed,
		User: user1 - user0,
		Sys:  sys1 - sys0,
	}, err
}
