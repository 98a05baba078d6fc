package runs

import (
	"dlbench/pkg/domain"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// JobArgs are the arguments of the River job executing one stored run.
type JobArgs struct {
	// RunID is the run to execute. One live job exists per run.
	RunID domain.RunID `json:"run_id" river:"unique"`

	// maxAttempts is how many times River tries the job.
	maxAttempts int
}

// Kind is the River job kind the run worker is registered under.
func (args JobArgs) Kind() string { return "BenchmarkRunJob" }

// InsertOpts caps retries and keeps a single unfinished job per run.
func (args JobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
