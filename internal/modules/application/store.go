// README: Application persistence backed by PostgreSQL.
package application

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/types"
)

var (
	ErrNotFound       = apperr.NotFound("application_not_found", "application not found")
	ErrAlreadyApplied = apperr.Conflict("already_applied", "helper already applied to this order")
	ErrActiveExists   = apperr.Conflict("active_application_exists", "order already has an active application")
	ErrStale          = apperr.Conflict("stale_application_status", "application status changed concurrently")
)

const (
	uniqueOrderHelper = "uq_order_applications_order_helper"
	uniqueActive      = "uq_order_applications_one_active"
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

const applicationColumns = `id, order_id, helper_id, status, checked_in_at, created_at, updated_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	if err := row.Scan(&a.ID, &a.OrderID, &a.HelperID, &a.Status, &a.CheckedInAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, q infra.DBTX, a *Application) error {
	_, err := q.Exec(ctx, `
		INSERT INTO order_applications (id, order_id, helper_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(a.ID), string(a.OrderID), string(a.HelperID), string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	if infra.UniqueViolationConstraint(err) == uniqueOrderHelper {
		return ErrAlreadyApplied
	}
	return errors.Wrap(err, "insert application")
}

func (s *Store) Get(ctx context.Context, q infra.DBTX, id types.ID) (*Application, error) {
	a, err := scanApplication(q.QueryRow(ctx, `SELECT `+applicationColumns+` FROM order_applications WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, errors.Wrap(err, "select application")
}

func (s *Store) ListByHelper(ctx context.Context, q infra.DBTX, helperID types.ID) ([]Application, error) {
	rows, err := q.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM order_applications
		WHERE helper_id = $1
		ORDER BY created_at, id`, string(helperID))
	if err != nil {
		return nil, errors.Wrap(err, "select helper applications")
	}
	defer rows.Close()
	var out []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan application")
		}
		out = append(out, *a)
	}
	return out, errors.Wrap(rows.Err(), "iterate applications")
}

// CompareAndSetStatus reports false when the row is no longer in from.
// checkedInAt is only written when non-nil.
func (s *Store) CompareAndSetStatus(ctx context.Context, q infra.DBTX, id types.ID, from, to Status, checkedInAt *time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE order_applications
		SET status = $1,
		    checked_in_at = COALESCE($2, checked_in_at),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		string(to), checkedInAt, string(id), string(from),
	)
	if infra.UniqueViolationConstraint(err) == uniqueActive {
		return false, ErrActiveExists
	}
	if err != nil {
		return false, errors.Wrap(err, "update application status")
	}
	return tag.RowsAffected() == 1, nil
}
