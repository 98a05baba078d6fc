package runs

import (
	"context"

	"dlbench/pkg/domain"
)

// RunRequest describes a benchmark a user asks for: Count copies of URL
// downloaded in Mode.
type RunRequest struct {
	Mode  domain.Mode
	URL   string
	Count int
}

//go:generate mockgen -package mockruns -source=interface.go -destination=mock/mockruns.go *
type Runs interface {
	Enqueue(ctx context.Context, userID domain.UserID, req RunRequest) (*domain.Run, error)
	UserRuns(ctx context.Context,
		userID domain.UserID,
		status domain.RunStatus,
		cursor string,
		limit uint) ([]domain.Run, string, error)
	Result(ctx context.Context, userID domain.UserID, runID domain.RunID) (*domain.Run, error)
	Delete(ctx context.Context, userID domain.UserID, runID domain.RunID) error
}
