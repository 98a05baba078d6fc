package worker

import (
	"context"
	"errors"
	"fmt"

	"dlbench/internal/bench"
	"dlbench/internal/download"
	"dlbench/internal/runs"
	"dlbench/pkg/domain"
	"dlbench/pkg/fetch"
	"dlbench/pkg/logger"
	"dlbench/pkg/metrics"
	"dlbench/pkg/serrors"
	"dlbench/pkg/storage"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeRetried   = "retried"
)

// RunWorker is a River worker executing one stored benchmark run per job: it
// downloads the run's batch in the run's mode under bench.Measure and stores
// the result.
//
// A failed attempt is recorded on the run and returned to River, which retries
// the job. The run stays PENDING until its attempts exceed maxAttempts, then
// becomes FAILED. Runs that can never succeed (ErrBadRequest) fail at once and
// their job is cancelled.
type RunWorker struct {
	river.WorkerDefaults[runs.JobArgs]

	storage     storage.Storage
	client      fetch.Client
	downloads   download.Options
	maxAttempts uint
	metrics     *metrics.Runs
}

// NewRunWorker returns a worker downloading through client. m may be nil.
func NewRunWorker(st storage.Storage,
	client fetch.Client,
	downloads download.Options,
	maxAttempts uint,
	m *metrics.Runs) *RunWorker {
	return &RunWorker{
		storage:     st,
		client:      client,
		downloads:   downloads,
		maxAttempts: maxAttempts,
		metrics:     m,
	}
}

// Work executes the run referenced by job.
func (w *RunWorker) Work(ctx context.Context, job *river.Job[runs.JobArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.Stringer("runID", job.Args.RunID))

	run, err := w.storage.RunByID(ctx, job.Args.RunID)
	if err != nil {
		return fmt.Errorf("could not load run: %w", err)
	}
	if run == nil || run.Status != domain.RunStatusPending {
		logger.Info(ctx, "run is gone or already finished, skipping")

		return nil
	}
	ctx = logger.WithFields(ctx, zap.String("mode", string(run.Mode)), zap.Int("count", run.Count))

	result, err := w.execute(ctx, *run)
	if err != nil {
		return w.fail(ctx, *run, err)
	}

	noError := ""
	if _, err := w.storage.UpdateRunByID(ctx, run.ID, storage.RunUpdates{
		Status:    domain.RunStatusCompleted,
		Result:    &result,
		LastError: &noError,
	}); err != nil {
		return fmt.Errorf("could not store run result: %w", err)
	}

	if w.metrics != nil {
		mode := string(run.Mode)
		w.metrics.Total.WithLabelValues(mode, outcomeCompleted).Inc()
		w.metrics.Duration.WithLabelValues(mode).Observe(result.RealSeconds)
		w.metrics.Bytes.WithLabelValues(mode).Add(float64(result.Bytes))
	}
	logger.Info(ctx, "run completed",
		zap.Int("downloads", result.Downloads),
		zap.Float64("realSeconds", result.RealSeconds))

	return nil
}

func (w *RunWorker) execute(ctx context.Context, run domain.Run) (domain.RunResult, error) {
	urls, err := download.Batch(run.URL, run.Count)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("could not build batch: %w", err)
	}

	d := download.New(w.client, w.downloads)

	var bodies [][]byte
	timing, err := bench.Measure(ctx, func(ctx context.Context) error {
		var err error
		bodies, err = d.Run(ctx, run.Mode, urls)

		return err //nolint: wrapcheck
	})
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("could not download batch: %w", err)
	}

	return domain.NewRunResult(bodies, timing), nil
}

// fail records err on the run and maps it to the River outcome.
func (w *RunWorker) fail(ctx context.Context, run domain.Run, err error) error {
	permanent := errors.Is(err, serrors.ErrBadRequest)

	updates := storage.RunUpdates{
		Status:      domain.RunStatusFailed,
		MaxAttempts: w.maxAttempts,
	}
	if permanent {
		updates.MaxAttempts = 0
	}
	msg := err.Error()
	updates.LastError = &msg

	updated, uerr := w.storage.UpdateRunByID(ctx, run.ID, updates)
	if uerr != nil {
		logger.Error(ctx, "could not record run failure", zap.Error(uerr))
	}

	outcome := outcomeRetried
	if permanent || (updated != nil && updated.Status == domain.RunStatusFailed) {
		outcome = outcomeFailed
	}
	if w.metrics != nil {
		w.metrics.Total.WithLabelValues(string(run.Mode), outcome).Inc()
	}
	logger.Error(ctx, "run failed", zap.Error(err), zap.String("outcome", outcome))

	if permanent {
		return river.JobCancel(err) //nolint: wrapcheck
	}

	return fmt.Errorf("could not execute run: %w", err)
}
