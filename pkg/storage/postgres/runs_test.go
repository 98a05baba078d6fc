package postgres_test

import (
	"context"
	"testing"
	"time"

	"dlbench/pkg/domain"
	"dlbench/pkg/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestPgSQL_StoreRun(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := domain.UserID(uuid.New())

	stored, err := pg.StoreRun(ctx, newRun(userID))
	require.NoError(t, err)
	require.NotEqual(t, domain.RunID(uuid.Nil), stored.ID)
	require.Equal(t, userID, stored.UserID)
	require.Equal(t, domain.ModeSequential, stored.Mode)
	require.Equal(t, 50, stored.Count)
	require.Equal(t, domain.RunStatusPending, stored.Status)
	require.Zero(t, stored.Attempts)
	require.Equal(t, domain.RunResult{}, stored.Result)
	require.False(t, stored.CreatedAt.IsZero())
	require.True(t, stored.UpdatedAt.IsZero())
}

func TestPgSQL_UpdateRunByID(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	stored, err := pg.StoreRun(ctx, newRun(domain.UserID(uuid.New())))
	require.NoError(t, err)

	result := domain.RunResult{Downloads: 50, Bytes: 4150, RealSeconds: 1.25}
	updated, err := pg.UpdateRunByID(ctx, stored.ID, storage.RunUpdates{
		Status:    domain.RunStatusCompleted,
		Result:    &result,
		LastError: ptr(""),
	})
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusCompleted, updated.Status)
	require.Equal(t, result, updated.Result)
	require.Equal(t, uint(1), updated.Attempts)
	require.Empty(t, updated.LastError)
	require.False(t, updated.UpdatedAt.IsZero())

	missing, err := pg.UpdateRunByID(ctx, domain.RunID(uuid.New()), storage.RunUpdates{
		Status: domain.RunStatusCompleted,
	})
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPgSQL_UpdateRunByID_MaxAttempts(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	stored, err := pg.StoreRun(ctx, newRun(domain.UserID(uuid.New())))
	require.NoError(t, err)

	failed := storage.RunUpdates{
		Status:      domain.RunStatusFailed,
		LastError:   ptr("could not download"),
		MaxAttempts: 2,
	}

	// attempts 1 and 2 stay pending, the third exceeds the limit
	for attempt := uint(1); attempt <= 2; attempt++ {
		run, err := pg.UpdateRunByID(ctx, stored.ID, failed)
		require.NoError(t, err)
		require.Equal(t, attempt, run.Attempts)
		require.Equal(t, domain.RunStatusPending, run.Status)
		require.Equal(t, "could not download", run.LastError)
	}

	run, err := pg.UpdateRunByID(ctx, stored.ID, failed)
	require.NoError(t, err)
	require.Equal(t, uint(3), run.Attempts)
	require.Equal(t, domain.RunStatusFailed, run.Status)
}

func TestPgSQL_UserRunByID(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := domain.UserID(uuid.New())
	stored, err := pg.StoreRun(ctx, newRun(owner))
	require.NoError(t, err)

	got, err := pg.UserRunByID(ctx, owner, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, stored.ID, got.ID)

	other, err := pg.UserRunByID(ctx, domain.UserID(uuid.New()), stored.ID)
	require.NoError(t, err)
	require.Nil(t, other)
}

func TestPgSQL_UserRuns_Pagination(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := domain.UserID(uuid.New())

	ids := make([]domain.RunID, 0, 5)
	for range 5 {
		run, err := pg.StoreRun(ctx, newRun(userID))
		require.NoError(t, err)
		ids = append(ids, run.ID)
		// distinct created_at values keep the cursor unambiguous
		time.Sleep(5 * time.Millisecond)
	}
	_, err := pg.StoreRun(ctx, newRun(domain.UserID(uuid.New())))
	require.NoError(t, err)

	first, err := pg.UserRuns(ctx, userID, "", time.Time{}, 3)
	require.NoError(t, err)
	require.Len(t, first.Runs, 3)
	require.NotNil(t, first.NextCursor)
	require.Equal(t, ids[4], first.Runs[0].ID)
	require.Equal(t, ids[2], first.Runs[2].ID)

	second, err := pg.UserRuns(ctx, userID, "", *first.NextCursor, 3)
	require.NoError(t, err)
	require.Len(t, second.Runs, 2)
	require.Nil(t, second.NextCursor)
	require.Equal(t, ids[1], second.Runs[0].ID)
	require.Equal(t, ids[0], second.Runs[1].ID)
}

func TestPgSQL_UserRuns_StatusFilter(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := domain.UserID(uuid.New())

	done, err := pg.StoreRun(ctx, newRun(userID))
	require.NoError(t, err)
	_, err = pg.UpdateRunByID(ctx, done.ID, storage.RunUpdates{Status: domain.RunStatusCompleted})
	require.NoError(t, err)
	_, err = pg.StoreRun(ctx, newRun(userID))
	require.NoError(t, err)

	page, err := pg.UserRuns(ctx, userID, domain.RunStatusCompleted, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Runs, 1)
	require.Equal(t, done.ID, page.Runs[0].ID)
}

func TestPgSQL_DeleteRun(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := domain.UserID(uuid.New())
	stored, err := pg.StoreRun(ctx, newRun(owner))
	require.NoError(t, err)

	// only the owner can delete
	deleted, err := pg.DeleteRun(ctx, domain.UserID(uuid.New()), stored.ID)
	require.NoError(t, err)
	require.Nil(t, deleted)

	deleted, err = pg.DeleteRun(ctx, owner, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	require.False(t, deleted.DeletedAt.IsZero())

	got, err := pg.RunByID(ctx, stored.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	again, err := pg.DeleteRun(ctx, owner, stored.ID)
	require.NoError(t, err)
	require.Nil(t, again)

	page, err := pg.UserRuns(ctx, owner, "", time.Time{}, 10)
	require.NoError(t, err)
	require.Empty(t, page.Runs)
}
