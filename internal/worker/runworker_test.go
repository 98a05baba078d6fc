package worker_test

import (
	"context"
	"errors"
	"testing"

	"dlbench/internal/download"
	"dlbench/internal/runs"
	"dlbench/internal/worker"
	"dlbench/pkg/domain"
	"dlbench/pkg/fetch"
	mockfetch "dlbench/pkg/fetch/mock"
	"dlbench/pkg/logger"
	"dlbench/pkg/metrics"
	"dlbench/pkg/serrors"
	"dlbench/pkg/storage"
	mockstorage "dlbench/pkg/storage/mock"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testURL = "https://jsonplaceholder.typicode.com/todos/1"

func TestMain(m *testing.M) {
	_ = logger.Setup(logger.DevelopmentEnvironment, "error")
	m.Run()
}

type fixture struct {
	storage *mockstorage.MockStorage
	client  *mockfetch.MockClient
	metrics *metrics.Runs
	worker  *worker.RunWorker
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	m, err := metrics.NewRuns(prometheus.NewRegistry())
	require.NoError(t, err)

	f := fixture{
		storage: mockstorage.NewMockStorage(ctrl),
		client:  mockfetch.NewMockClient(ctrl),
		metrics: m,
	}
	f.worker = worker.NewRunWorker(f.storage, f.client, download.Options{}, 3, m)

	return f
}

func makeJob(runID domain.RunID) *river.Job[runs.JobArgs] {
	return &river.Job[runs.JobArgs]{
		JobRow: &rivertype.JobRow{ID: 7},
		Args:   runs.JobArgs{RunID: runID},
	}
}

func pendingRun(mode domain.Mode, count int) *domain.Run {
	return &domain.Run{
		ID:     domain.RunID(uuid.New()),
		Mode:   mode,
		URL:    testURL,
		Count:  count,
		Status: domain.RunStatusPending,
	}
}

func TestRunWorker_Work_Completes(t *testing.T) {
	f := newFixture(t)
	run := pendingRun(domain.ModeAsynchronous, 3)

	f.storage.EXPECT().RunByID(gomock.Any(), run.ID).Return(run, nil)
	f.client.EXPECT().Fetch(gomock.Any(), testURL).
		Return(fetch.Response{StatusCode: 200, Body: []byte(`{"id":1}`)}, nil).Times(3)
	f.storage.EXPECT().UpdateRunByID(gomock.Any(), run.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.RunID, updates storage.RunUpdates) (*domain.Run, error) {
			require.Equal(t, domain.RunStatusCompleted, updates.Status)
			require.NotNil(t, updates.Result)
			require.Equal(t, 3, updates.Result.Downloads)
			require.EqualValues(t, 24, updates.Result.Bytes)
			require.NotNil(t, updates.LastError)
			require.Empty(t, *updates.LastError)

			return run, nil
		},
	)

	require.NoError(t, f.worker.Work(context.Background(), makeJob(run.ID)))
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Total.WithLabelValues("asynchronous", "completed")), 0)
	require.InDelta(t, 24, testutil.ToFloat64(f.metrics.Bytes.WithLabelValues("asynchronous")), 0)
}

func TestRunWorker_Work_SkipsMissingOrFinished(t *testing.T) {
	f := newFixture(t)

	gone := domain.RunID(uuid.New())
	f.storage.EXPECT().RunByID(gomock.Any(), gone).Return(nil, nil)
	require.NoError(t, f.worker.Work(context.Background(), makeJob(gone)))

	done := pendingRun(domain.ModeSequential, 1)
	done.Status = domain.RunStatusCompleted
	f.storage.EXPECT().RunByID(gomock.Any(), done.ID).Return(done, nil)
	require.NoError(t, f.worker.Work(context.Background(), makeJob(done.ID)))
}

func TestRunWorker_Work_LoadError(t *testing.T) {
	f := newFixture(t)
	id := domain.RunID(uuid.New())

	boom := errors.New("db down")
	f.storage.EXPECT().RunByID(gomock.Any(), id).Return(nil, boom)

	require.ErrorIs(t, f.worker.Work(context.Background(), makeJob(id)), boom)
}

func TestRunWorker_Work_TransientFailureRetries(t *testing.T) {
	f := newFixture(t)
	run := pendingRun(domain.ModeSequential, 2)

	f.storage.EXPECT().RunByID(gomock.Any(), run.ID).Return(run, nil)
	f.client.EXPECT().Fetch(gomock.Any(), testURL).
		Return(fetch.Response{}, serrors.With(serrors.ErrUnavailable, "connection refused"))
	f.storage.EXPECT().UpdateRunByID(gomock.Any(), run.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.RunID, updates storage.RunUpdates) (*domain.Run, error) {
			require.Equal(t, domain.RunStatusFailed, updates.Status)
			require.Equal(t, uint(3), updates.MaxAttempts)
			require.Contains(t, *updates.LastError, "connection refused")

			still := *run
			still.Attempts = 1

			return &still, nil
		},
	)

	err := f.worker.Work(context.Background(), makeJob(run.ID))
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	var cancelErr *river.JobCancelError
	require.NotErrorAs(t, err, &cancelErr)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Total.WithLabelValues("sequential", "retried")), 0)
}

func TestRunWorker_Work_LastAttemptFails(t *testing.T) {
	f := newFixture(t)
	run := pendingRun(domain.ModeSequential, 1)

	f.storage.EXPECT().RunByID(gomock.Any(), run.ID).Return(run, nil)
	f.client.EXPECT().Fetch(gomock.Any(), testURL).
		Return(fetch.Response{}, serrors.With(serrors.ErrTimeout, "too slow"))
	f.storage.EXPECT().UpdateRunByID(gomock.Any(), run.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.RunID, _ storage.RunUpdates) (*domain.Run, error) {
			failed := *run
			failed.Status = domain.RunStatusFailed
			failed.Attempts = 4

			return &failed, nil
		},
	)

	require.Error(t, f.worker.Work(context.Background(), makeJob(run.ID)))
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Total.WithLabelValues("sequential", "failed")), 0)
}

func TestRunWorker_Work_BadRequestCancels(t *testing.T) {
	f := newFixture(t)
	run := pendingRun(domain.ModeSequential, 1)
	run.URL = "not a url"

	f.storage.EXPECT().RunByID(gomock.Any(), run.ID).Return(run, nil)
	f.storage.EXPECT().UpdateRunByID(gomock.Any(), run.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.RunID, updates storage.RunUpdates) (*domain.Run, error) {
			require.Equal(t, domain.RunStatusFailed, updates.Status)
			require.Zero(t, updates.MaxAttempts)

			return run, nil
		},
	)

	err := f.worker.Work(context.Background(), makeJob(run.ID))
	var cancelErr *river.JobCancelError
	require.ErrorAs(t, err, &cancelErr)
}
