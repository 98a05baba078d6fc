package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunID uniquely identifies a queued benchmark run.
type RunID uuid.UUID

func (id RunID) String() string { return uuid.UUID(id).String() }

// MarshalText encodes the ID in its canonical UUID form.
func (id RunID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText decodes a canonical UUID.
func (id *RunID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParseRunID parses the textual form of a RunID.
func ParseRunID(s string) (RunID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RunID{}, fmt.Errorf("invalid run id: %w", err)
	}

	return RunID(u), nil
}

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	// RunStatusPending indicates the run is queued and has not completed yet.
	RunStatusPending RunStatus = "PENDING"
	// RunStatusCompleted indicates the run finished and Result is filled.
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusFailed indicates the run exhausted its attempts; see LastError.
	RunStatusFailed RunStatus = "FAILED"
)

// RunResult is the outcome of a completed run.
type RunResult struct {
	// Downloads is the number of bodies returned by the download strategy.
	Downloads int `json:"downloads"`
	// Bytes is the total size of all returned bodies.
	Bytes int64 `json:"bytes"`
	// RealSeconds, UserSeconds and SysSeconds are the measured Timing.
	RealSeconds float64 `json:"realSeconds"`
	UserSeconds float64 `json:"userSeconds"`
	SysSeconds  float64 `json:"sysSeconds"`
}

// NewRunResult builds a RunResult from downloaded bodies and their Timing.
func NewRunResult(downloads [][]byte, timing Timing) RunResult {
	var total int64
	for _, d := range downloads {
		total += int64(len(d))
	}

	return RunResult{
		Downloads:   len(downloads),
		Bytes:       total,
		RealSeconds: timing.Real.Seconds(),
		UserSeconds: timing.User.Seconds(),
		SysSeconds:  timing.Sys.Seconds(),
	}
}

// Run is a benchmark of one mode over Count copies of URL, requested by a
// user and executed by a background worker.
type Run struct {
	ID     RunID  `json:"id"`
	UserID UserID `json:"userId"`

	Mode  Mode   `json:"mode"`
	URL   string `json:"url"`
	Count int    `json:"count"`

	Status RunStatus `json:"status"`
	Result RunResult `json:"result"`

	// Attempts is the number of times a worker has tried to execute this run.
	Attempts uint `json:"attempts"`
	// LastError stores the most recent execution error, if any.
	LastError string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// DeletedAt marks when the run was soft-deleted; zero value means not deleted.
	DeletedAt time.Time `json:"-"`
}
