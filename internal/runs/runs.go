// Package runs manages queued benchmark runs: it validates requests, stores
// them together with their background job and serves them back to their owner.
package runs

import (
	"context"
	"fmt"
	"time"

	"dlbench/internal/config"
	"dlbench/internal/download"
	"dlbench/pkg/domain"
	"dlbench/pkg/serrors"
	"dlbench/pkg/storage"
)

// Options configure request validation and job retries.
type Options struct {
	// MaxCount is the largest batch a single run may download.
	MaxCount int
	// MaxAttempts is how many times the worker tries a run.
	MaxAttempts uint
}

// NewOptions derives Options from the application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxCount:    cfg.Worker.MaxCount,
		MaxAttempts: cfg.Worker.MaxAttempts,
	}
}

type runs struct {
	options Options
	storage storage.Storage
}

// Enqueue validates req, then stores a PENDING run and its job in one
// transaction so a run never exists without a job to execute it.
func (r runs) Enqueue(ctx context.Context, userID domain.UserID, req RunRequest) (*domain.Run, error) {
	mode, err := domain.ParseMode(string(req.Mode))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid mode")
	}
	if req.Count < 1 || req.Count > r.options.MaxCount {
		return nil, serrors.With(serrors.ErrBadRequest, "count must be between 1 and %d", r.options.MaxCount)
	}
	URL, err := download.NormalizeURL(req.URL)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid URL")
	}

	var run *domain.Run
	if err := r.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		stored, err := tx.StoreRun(ctx, domain.Run{
			UserID: userID,
			Mode:   mode,
			URL:    URL,
			Count:  req.Count,
			Status: domain.RunStatusPending,
		})
		if err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}

		if _, err := tx.AddJob(ctx, JobArgs{
			RunID:       stored.ID,
			maxAttempts: int(r.options.MaxAttempts),
		}, nil); err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}
		run = stored

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not enqueue run: %w", err)
	}

	return run, nil
}

// UserRuns returns a page of the user's runs, optionally filtered by status.
// Cursors are RFC3339 timestamps; an empty next cursor marks the last page.
func (r runs) UserRuns(ctx context.Context,
	userID domain.UserID,
	status domain.RunStatus,
	cursor string,
	limit uint) ([]domain.Run, string, error) {
	var cursorTime time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor")
		}
		cursorTime = t
	}

	page, err := r.storage.UserRuns(ctx, userID, status, cursorTime, limit)
	if err != nil {
		return nil, "", fmt.Errorf("could not get user runs: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = page.NextCursor.Format(time.RFC3339Nano)
	}

	return page.Runs, next, nil
}

// Result returns one run of the user.
func (r runs) Result(ctx context.Context, userID domain.UserID, runID domain.RunID) (*domain.Run, error) {
	res, err := r.storage.UserRunByID(ctx, userID, runID)
	if err != nil {
		return nil, fmt.Errorf("could not get run: %w", err)
	}
	if res == nil {
		return nil, serrors.With(serrors.ErrNotFound, "run not found")
	}

	return res, nil
}

// Delete soft-deletes one run of the user. A queued job for it finds the run
// gone and exits without work.
func (r runs) Delete(ctx context.Context, userID domain.UserID, runID domain.RunID) error {
	res, err := r.storage.DeleteRun(ctx, userID, runID)
	if err != nil {
		return fmt.Errorf("could not delete run: %w", err)
	}
	if res == nil {
		return serrors.With(serrors.ErrNotFound, "run not found")
	}

	return nil
}

// New returns a Runs service backed by storage.
func New(storage storage.Storage, options Options) Runs {
	return &runs{
		options: options,
		storage: storage,
	}
}
