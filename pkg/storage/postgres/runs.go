package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dlbench/pkg/domain"
	"dlbench/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
)

const (
	runsTable = "runs"
)

// StoreRun inserts run and returns the stored row.
func (p *PgSQL) StoreRun(ctx context.Context, run domain.Run) (*domain.Run, error) {
	var row PgRun
	row.FromDomain(run)

	var stored PgRun
	found, err := p.Builder.Insert(runsTable).
		Rows(row).
		Returning(&PgRun{}).
		Executor().ScanStructContext(ctx, &stored)
	if err != nil {
		return nil, fmt.Errorf("could not store run into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("could not store run into pg: no row returned")
	}

	return stored.ToDomain()
}

// UpdateRunByID applies updates to a single run. Attempts is incremented by 1
// and updated_at is set. A FAILED status with MaxAttempts set only sticks once
// the incremented attempts exceed MaxAttempts.
func (p *PgSQL) UpdateRunByID(ctx context.Context, id domain.RunID, updates storage.RunUpdates) (*domain.Run, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		"attempts":   goqu.L("attempts + 1"),
		"status":     string(updates.Status),
	}
	if updates.Status == domain.RunStatusFailed && updates.MaxAttempts > 0 {
		rec["status"] = goqu.Case().
			When(goqu.L("attempts + 1").Gt(updates.MaxAttempts), string(domain.RunStatusFailed)).
			Else(goqu.I("status"))
	}
	if updates.Result != nil {
		b, err := json.Marshal(updates.Result)
		if err != nil {
			return nil, fmt.Errorf("could not marshal result: %w", err)
		}

		rec["result"] = string(b)
	}
	if updates.LastError != nil {
		if *updates.LastError == "" {
			rec["last_error"] = goqu.L("NULL")
		} else {
			rec["last_error"] = *updates.LastError
		}
	}

	var row PgRun
	found, err := p.Builder.Update(runsTable).
		Set(rec).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("deleted_at").IsNull(),
		).
		Returning(&PgRun{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update run in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// RunByID returns a run by its ID regardless of its owner, excluding
// soft-deleted rows.
func (p *PgSQL) RunByID(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	return p.runWhere(ctx,
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("deleted_at").IsNull(),
	)
}

// UserRunByID returns a run by its ID when it belongs to userID, excluding
// soft-deleted rows.
func (p *PgSQL) UserRunByID(ctx context.Context, userID domain.UserID, id domain.RunID) (*domain.Run, error) {
	return p.runWhere(ctx,
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	)
}

func (p *PgSQL) runWhere(ctx context.Context, where ...exp.Expression) (*domain.Run, error) {
	var row PgRun
	found, err := p.Builder.From(runsTable).
		Where(where...).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch run from pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UserRuns returns a page of runs for a user, newest first. One extra row is
// fetched to find out whether a next page exists.
func (p *PgSQL) UserRuns(ctx context.Context,
	userID domain.UserID,
	status domain.RunStatus,
	cursor time.Time,
	limit uint) (storage.UserRuns, error) {
	w := []exp.Expression{
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	}
	if status != "" {
		w = append(w, goqu.I("status").Eq(string(status)))
	}
	if !cursor.IsZero() {
		w = append(w, goqu.I("created_at").Lt(cursor))
	}

	var rows []PgRun
	if err := p.Builder.From(runsTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(limit + 1).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.UserRuns{}, fmt.Errorf("could not fetch user runs from pg: %w", err)
	}

	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		rows = rows[:limit]
		if limit > 0 {
			nextCursor = &rows[len(rows)-1].CreatedAt
		}
	}

	runs, err := pgRunsToDomain(rows)
	if err != nil {
		return storage.UserRuns{}, err
	}

	return storage.UserRuns{
		Runs:       runs,
		NextCursor: nextCursor,
	}, nil
}

// DeleteRun soft-deletes a run of userID by setting deleted_at and returns
// the deleted row.
func (p *PgSQL) DeleteRun(ctx context.Context, userID domain.UserID, id domain.RunID) (*domain.Run, error) {
	var row PgRun
	found, err := p.Builder.Update(runsTable).
		Set(goqu.Record{
			"deleted_at": goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("user_id").Eq(uuid.UUID(userID)),
			goqu.I("deleted_at").IsNull(),
		).
		Returning(&PgRun{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete run in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}
