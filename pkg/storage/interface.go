// Package storage defines the persistence interfaces of the benchmark service:
// queued runs, their background jobs and transaction management. Concrete
// backends live in subpackages (e.g. postgres).
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import (
	"context"
	"errors"
	"time"

	"dlbench/pkg/domain"

	"github.com/riverqueue/river"
)

var (
	// ErrAlreadyInTx is returned by Begin on a handle that is already inside a transaction.
	ErrAlreadyInTx = errors.New("already in tx")
	// ErrNotInTx is returned by Commit or Rollback on a handle outside a transaction.
	ErrNotInTx = errors.New("not in tx")
)

// AllStorage groups every domain capability. Both plain and transactional
// handles implement it.
type AllStorage interface {
	RunStorage
	JobStorage
}

// TxStorage is a storage handle bound to a database transaction. It becomes
// unusable after Commit or Rollback.
type TxStorage interface {
	AllStorage

	Commit() error
	Rollback() error
}

// Storage is a non-transactional handle able to start transactions.
type Storage interface {
	AllStorage

	// Close releases the underlying connection pool.
	Close() error
	// Begin starts a transaction.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx runs cb inside a transaction, committing when cb returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}

// RunUpdates lists the fields changed by UpdateRunByID.
type RunUpdates struct {
	// Status is the new status of the run.
	Status domain.RunStatus
	// Result replaces the stored result when non-nil.
	Result *domain.RunResult
	// LastError sets the last error text when non-nil; an empty string clears it.
	LastError *string
	// MaxAttempts guards a FAILED Status: the run only becomes FAILED once its
	// attempts after the increment exceed MaxAttempts, and stays PENDING
	// otherwise. Zero disables the guard.
	MaxAttempts uint
}

// UserRuns is one page of a user's runs.
type UserRuns struct {
	Runs []domain.Run
	// NextCursor is the creation time to pass as cursor for the next page; nil
	// on the last page.
	NextCursor *time.Time
}

// RunStorage persists benchmark runs. Soft-deleted runs are invisible to every
// method.
type RunStorage interface {
	// StoreRun inserts run and returns the stored row, generated fields included.
	StoreRun(ctx context.Context, run domain.Run) (*domain.Run, error)
	// UpdateRunByID applies updates to the run, increments its attempts and
	// sets updated_at. It returns nil when the run does not exist.
	UpdateRunByID(ctx context.Context, id domain.RunID, updates RunUpdates) (*domain.Run, error)
	// RunByID returns the run regardless of its owner, or nil.
	RunByID(ctx context.Context, id domain.RunID) (*domain.Run, error)
	// UserRunByID returns the run when it belongs to userID, or nil.
	UserRunByID(ctx context.Context, userID domain.UserID, id domain.RunID) (*domain.Run, error)
	// UserRuns returns up to limit runs of userID created before cursor (zero
	// means no cursor), newest first, optionally filtered by status.
	UserRuns(ctx context.Context,
		userID domain.UserID,
		status domain.RunStatus,
		cursor time.Time,
		limit uint) (UserRuns, error)
	// DeleteRun soft-deletes the run of userID and returns it, or nil.
	DeleteRun(ctx context.Context, userID domain.UserID, id domain.RunID) (*domain.Run, error)
}

// JobStorage enqueues background jobs. Inside a transaction the job only
// becomes visible on commit.
type JobStorage interface {
	// AddJob inserts a job and reports whether it was added, false meaning a
	// unique duplicate was skipped.
	AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error)
}
