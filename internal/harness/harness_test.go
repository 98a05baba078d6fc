package harness_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"dlbench/internal/harness"

	"github.com/stretchr/testify/require"
)

// TestHelperProcess isn't a real test. It stands in for the dlbench binary
// when the harness re-executes itself.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]

			break
		}
	}

	// drop the executable name and an optional -c <path>
	args = args[1:]
	config := ""
	if len(args) >= 2 && args[0] == "-c" {
		config, args = args[1], args[2:]
	}

	switch strings.Join(args, " ") {
	case "compare":
		fmt.Fprintf(os.Stdout, "compare output config=%s\n", config)
		fmt.Fprint(os.Stderr, "compare diagnostics\n")
	case "download sequential":
		fmt.Fprint(os.Stdout, "sequential stdout\n")
		if code, _ := strconv.Atoi(os.Getenv("HELPER_SEQUENTIAL_EXIT")); code != 0 {
			os.Exit(code)
		}
	case "download asynchronous":
		if code, _ := strconv.Atoi(os.Getenv("HELPER_ASYNCHRONOUS_EXIT")); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "unexpected args %q\n", args)
		os.Exit(2)
	}
	os.Exit(0)
}

func fakeCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)

	return exec.CommandContext(ctx, os.Args[0], cs...)
}

func newTestHarness(t *testing.T, dir string, stdout, stderr *bytes.Buffer) *harness.Harness {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")

	return harness.New(harness.Options{
		Executable: "dlbench",
		ConfigPath: "bench.yml",
		ResultsDir: dir,
		Stdout:     stdout,
		Stderr:     stderr,
		Command:    fakeCommand,
	})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(b)
}

func TestHarness_Run(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	var stdout, stderr bytes.Buffer

	require.NoError(t, newTestHarness(t, dir, &stdout, &stderr).Run(context.Background()))

	require.Equal(t, "compare output config=bench.yml\n", readFile(t, filepath.Join(dir, "compare.txt")))
	require.Contains(t, stderr.String(), "compare diagnostics")
	require.Equal(t, "sequential stdout\n", stdout.String())

	timingRe := `^\nreal\t\d+m\d+\.\d{3}s\nuser\t\d+m\d+\.\d{3}s\nsys\t\d+m\d+\.\d{3}s\n$`
	require.Regexp(t, timingRe, readFile(t, filepath.Join(dir, "sequential_time.txt")))
	require.Regexp(t, timingRe, readFile(t, filepath.Join(dir, "asynchronous_time.txt")))
}

func TestHarness_Run_TruncatesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	stale := strings.Repeat("stale ", 100)
	for _, inv := range harness.Invocations() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, inv.File), []byte(stale), 0o600))
	}

	var stdout, stderr bytes.Buffer
	require.NoError(t, newTestHarness(t, dir, &stdout, &stderr).Run(context.Background()))

	for _, inv := range harness.Invocations() {
		require.NotContains(t, readFile(t, filepath.Join(dir, inv.File)), "stale")
	}
}

func TestHarness_Run_ContinuesAfterFailure(t *testing.T) {
	t.Setenv("HELPER_SEQUENTIAL_EXIT", "3")

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	// the sequential step fails but the final step succeeds
	require.NoError(t, newTestHarness(t, dir, &stdout, &stderr).Run(context.Background()))
	require.FileExists(t, filepath.Join(dir, "asynchronous_time.txt"))
	require.Contains(t, readFile(t, filepath.Join(dir, "sequential_time.txt")), "real\t")
}

func TestHarness_Run_ReturnsFinalExitCode(t *testing.T) {
	t.Setenv("HELPER_ASYNCHRONOUS_EXIT", "7")

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	err := newTestHarness(t, dir, &stdout, &stderr).Run(context.Background())
	require.Error(t, err)
	require.Equal(t, 7, harness.ExitCode(err))

	// the timing report is written even for a failing child
	require.Contains(t, readFile(t, filepath.Join(dir, "asynchronous_time.txt")), "real\t")
	require.Contains(t, readFile(t, filepath.Join(dir, "compare.txt")), "compare output")
}

func TestHarness_Run_NoConfig(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	dir := t.TempDir()

	h := harness.New(harness.Options{
		Executable: "dlbench",
		ResultsDir: dir,
		Command:    fakeCommand,
		Stderr:     &bytes.Buffer{},
	})
	require.NoError(t, h.Run(context.Background()))
	require.Equal(t, "compare output config=\n", readFile(t, filepath.Join(dir, "compare.txt")))
}

func TestInvocations(t *testing.T) {
	invs := harness.Invocations()
	require.Len(t, invs, 3)
	require.Equal(t, []string{"compare"}, invs[0].Args)
	require.Equal(t, harness.CaptureStdout, invs[0].Capture)
	require.Equal(t, []string{"download", "sequential"}, invs[1].Args)
	require.Equal(t, "sequential_time.txt", invs[1].File)
	require.Equal(t, []string{"download", "asynchronous"}, invs[2].Args)
	require.Equal(t, harness.CaptureTiming, invs[2].Capture)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, harness.ExitCode(nil))
	require.Equal(t, 1, harness.ExitCode(fmt.Errorf("plain")))
}
