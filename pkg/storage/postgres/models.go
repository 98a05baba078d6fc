package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dlbench/pkg/domain"

	"github.com/google/uuid"
)

// PgRun is the row layout of the runs table. Result is scanned as raw bytes
// since the driver hands jsonb back as text.
type PgRun struct {
	ID     uuid.UUID `db:"id"      goqu:"skipinsert"`
	UserID uuid.UUID `db:"user_id"`

	Mode   string `db:"mode"`
	URL    string `db:"url"`
	Count  int    `db:"count"`
	Status string `db:"status"`
	Result []byte `db:"result" goqu:"skipinsert"`

	Attempts  uint           `db:"attempts"   goqu:"skipinsert"`
	LastError sql.NullString `db:"last_error" goqu:"skipinsert"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
	DeletedAt sql.NullTime `db:"deleted_at" goqu:"skipinsert"`
}

// ToDomain converts the row into a domain.Run.
func (p *PgRun) ToDomain() (*domain.Run, error) {
	var result domain.RunResult
	if len(p.Result) > 0 {
		if err := json.Unmarshal(p.Result, &result); err != nil {
			return nil, fmt.Errorf("could not unmarshal run result: %w", err)
		}
	}

	return &domain.Run{
		ID:        domain.RunID(p.ID),
		UserID:    domain.UserID(p.UserID),
		Mode:      domain.Mode(p.Mode),
		URL:       p.URL,
		Count:     p.Count,
		Status:    domain.RunStatus(p.Status),
		Result:    result,
		Attempts:  p.Attempts,
		LastError: p.LastError.String,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt.Time,
		DeletedAt: p.DeletedAt.Time,
	}, nil
}

// FromDomain fills the row from run.
func (p *PgRun) FromDomain(run domain.Run) {
	*p = PgRun{
		ID:       uuid.UUID(run.ID),
		UserID:   uuid.UUID(run.UserID),
		Mode:     string(run.Mode),
		URL:      run.URL,
		Count:    run.Count,
		Status:   string(run.Status),
		Attempts: run.Attempts,
		LastError: sql.NullString{
			String: run.LastError,
			Valid:  run.LastError != "",
		},
		CreatedAt: run.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  run.UpdatedAt,
			Valid: !run.UpdatedAt.IsZero(),
		},
		DeletedAt: sql.NullTime{
			Time:  run.DeletedAt,
			Valid: !run.DeletedAt.IsZero(),
		},
	}
}

func pgRunsToDomain(runs []PgRun) ([]domain.Run, error) {
	out := make([]domain.Run, 0, len(runs))
	for _, run := range runs {
		d, err := run.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}
