package main

import (
	"context"
	"database/sql"
	"fmt"

	"dlbench"
	"dlbench/internal/config"
	"dlbench/pkg/logger"

	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCommand constructs the 'migrate' subcommand that applies the runs
// schema with goose and then brings the River queue tables to the latest
// version.
func migrateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrates database to the latest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			db, ok := strg.DB.(*sql.DB)
			if !ok {
				return fmt.Errorf("unexpected database handle %T", strg.DB)
			}

			goose.SetBaseFS(dlbench.Migrations)
			if err := goose.SetDialect("postgres"); err != nil {
				return fmt.Errorf("could not set goose dialect to postgres: %w", err)
			}
			if err := goose.UpContext(ctx, db, "migrations"); err != nil {
				return fmt.Errorf("could not migrate runs schema: %w", err)
			}
			logger.Info(ctx, "runs schema is up to date")

			return migrateRiver(ctx, db)
		},
	}

	return cmd
}

func migrateRiver(ctx context.Context, db *sql.DB) error {
	migrator, err := rivermigrate.New(riverdatabasesql.New(db), nil)
	if err != nil {
		return fmt.Errorf("could not create river queue migrator: %w", err)
	}

	versions := migrator.AllVersions()
	latest := versions[len(versions)-1].Version
	current := 0
	existing, err := migrator.ExistingVersions(ctx)
	if err != nil {
		return fmt.Errorf("could not get existing river queue migrations: %w", err)
	}
	if len(existing) > 0 {
		current = existing[len(existing)-1].Version
	}
	if latest <= current {
		logger.Info(ctx, "river queue schema is up to date", zap.Int("version", current))

		return nil
	}

	if _, err = migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{
		TargetVersion: latest,
	}); err != nil {
		return fmt.Errorf("could not migrate river queue: %w", err)
	}
	logger.Info(ctx, "migrated river queue", zap.Int("from", current), zap.Int("to", latest))

	return nil
}
