package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"dlbench/pkg/storage/postgres"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertest"
	"github.com/stretchr/testify/require"
)

type benchJobArgs struct {
	RunID string `json:"run_id"`
}

func (benchJobArgs) Kind() string { return "bench_test" }

func migrateRiver(t *testing.T, pg *postgres.PgSQL) {
	t.Helper()
	migrator, err := rivermigrate.New(riverdatabasesql.New(pg.DB.(*sql.DB)), nil)
	require.NoError(t, err)
	versions := migrator.AllVersions()
	_, err = migrator.Migrate(t.Context(), rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{
		TargetVersion: versions[len(versions)-1].Version,
	})
	require.NoError(t, err)
}

func TestPgSQL_AddJob_Tx(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()
	migrateRiver(t, pg)

	ctx := context.Background()

	tx, err := pg.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	added, err := tx.AddJob(ctx, benchJobArgs{RunID: "a"}, nil)
	require.NoError(t, err)
	require.True(t, added)
	rivertest.RequireInsertedTx[*riverdatabasesql.Driver](
		ctx,
		t,
		tx.(*postgres.PgSQL).DB.(*sql.Tx),
		&benchJobArgs{},
		nil,
	)
}

func TestPgSQL_AddJob_DB(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()
	migrateRiver(t, pg)

	ctx := context.Background()

	added, err := pg.AddJob(ctx, benchJobArgs{RunID: "b"}, nil)
	require.NoError(t, err)
	require.True(t, added)
	rivertest.RequireInserted[*riverdatabasesql.Driver](
		ctx,
		t,
		riverdatabasesql.New(pg.DB.(*sql.DB)),
		&benchJobArgs{},
		nil,
	)
}

func TestPgSQL_AddJob_UniqueSkipped(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()
	migrateRiver(t, pg)

	ctx := context.Background()
	opts := &river.InsertOpts{UniqueOpts: river.UniqueOpts{ByArgs: true}}

	added, err := pg.AddJob(ctx, benchJobArgs{RunID: "c"}, opts)
	require.NoError(t, err)
	require.True(t, added)

	added, err = pg.AddJob(ctx, benchJobArgs{RunID: "c"}, opts)
	require.NoError(t, err)
	require.False(t, added)
}
