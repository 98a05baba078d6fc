package domain

import (
	"fmt"
	"time"
)

// Mode selects how a batch of URLs is downloaded.
type Mode string

const (
	// ModeSequential downloads one URL at a time, in order.
	ModeSequential Mode = "sequential"
	// ModeAsynchronous downloads every URL of the batch concurrently.
	ModeAsynchronous Mode = "asynchronous"
)

// Modes lists every supported mode in the order they are benchmarked.
func Modes() []Mode {
	return []Mode{ModeSequential, ModeAsynchronous}
}

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSequential, ModeAsynchronous:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Timing is the cost of one measured execution, split the way the shell's
// time builtin reports it.
type Timing struct {
	// Real is the elapsed wall-clock time.
	Real time.Duration
	// User is the CPU time spent in user mode.
	User time.Duration
	// Sys is the CPU time spent in the kernel.
	Sys time.Duration
}
