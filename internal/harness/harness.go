// Package harness re-executes the dlbench binary for the three benchmark
// invocations and captures their output into the results directory.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"dlbench/internal/bench"
	"dlbench/pkg/domain"
	"dlbench/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sys/execabs"
)

// Capture selects what an invocation writes to its results file.
type Capture int

const (
	// CaptureStdout stores the child's standard output.
	CaptureStdout Capture = iota
	// CaptureTiming stores the child's real/user/sys timing report.
	CaptureTiming
)

// Invocation is one child run of the binary.
type Invocation struct {
	// Args are the subcommand and its arguments.
	Args []string
	// File is the results file name, relative to the results directory.
	File string
	// Capture selects the content of File.
	Capture Capture
}

// Invocations returns the fixed benchmark sequence: the comparison program,
// then timed sequential and asynchronous downloads.
func Invocations() []Invocation {
	return []Invocation{
		{Args: []string{"compare"}, File: "compare.txt", Capture: CaptureStdout},
		{Args: []string{"download", string(domain.ModeSequential)}, File: "sequential_time.txt", Capture: CaptureTiming},
		{Args: []string{"download", string(domain.ModeAsynchronous)}, File: "asynchronous_time.txt", Capture: CaptureTiming},
	}
}

// CommandFunc builds the command for one child process.
type CommandFunc func(ctx context.Context, name string, args ...string) *execabs.Cmd

// Options configure a Harness.
type Options struct {
	// Executable is the binary to run. Empty means the running executable.
	Executable string
	// ConfigPath is forwarded to every child with -c when non-empty.
	ConfigPath string
	// ResultsDir receives the results files. It is created when missing.
	ResultsDir string
	// Stdout receives the output of timed children. Nil discards it.
	Stdout io.Writer
	// Stderr receives the error output of every child. Nil means os.Stderr.
	Stderr io.Writer
	// Command builds child processes. Nil means execabs.CommandContext.
	Command CommandFunc
}

// Harness runs Invocations strictly one after another.
type Harness struct {
	opts        Options
	invocations []Invocation
}

// New creates a Harness running the fixed Invocations.
func New(opts Options) *Harness {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Command == nil {
		opts.Command = execabs.CommandContext
	}

	return &Harness{opts: opts, invocations: Invocations()}
}

// Run executes every invocation. A failing invocation is logged and does not
// stop the following ones; only the error of the final invocation is
// returned.
func (h *Harness) Run(ctx context.Context) error {
	exe := h.opts.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("could not resolve executable: %w", err)
		}
	}

	if err := os.MkdirAll(h.opts.ResultsDir, 0o755); err != nil {
		return fmt.Errorf("could not create results directory: %w", err)
	}

	var last error
	for _, inv := range h.invocations {
		ctx := logger.WithFields(ctx, zap.Strings("args", inv.Args), zap.String("file", inv.File))

		last = h.invoke(ctx, exe, inv)
		if last != nil {
			logger.Error(ctx, "invocation failed", zap.Error(last))

			continue
		}
		logger.Info(ctx, "invocation finished")
	}

	return last
}

func (h *Harness) invoke(ctx context.Context, exe string, inv Invocation) error {
	path := filepath.Join(h.opts.ResultsDir, inv.File)
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create results file: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	args := make([]string, 0, len(inv.Args)+2)
	if h.opts.ConfigPath != "" {
		args = append(args, "-c", h.opts.ConfigPath)
	}
	args = append(args, inv.Args...)

	cmd := h.opts.Command(ctx, exe, args...)
	cmd.Stderr = h.opts.Stderr
	switch inv.Capture {
	case CaptureStdout:
		cmd.Stdout = out
	case CaptureTiming:
		cmd.Stdout = h.opts.Stdout
	}

	start := time.Now()
	runErr := cmd.Run()
	timing := domain.Timing{Real: time.Since(start)}
	if cmd.ProcessState != nil {
		timing.User = cmd.ProcessState.UserTime()
		timing.Sys = cmd.ProcessState.SystemTime()
	}

	if inv.Capture == CaptureTiming {
		if err := bench.WriteTiming(out, timing); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("could not run %v: %w", inv.Args, runErr)
	}

	return nil
}

// ExitCode returns the exit code carried by err: 0 for nil, the child's code
// for a child that exited with a status, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *execabs.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}

	return 1
}
