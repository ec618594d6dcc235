// README: Check-in and personal-code persistence backed by PostgreSQL.
package checkin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"helperhub/internal/infra"
	"helperhub/internal/types"
)

const maxCodeAttempts = 5

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// Exists reports whether the helper already checked in on day for the
// requester, or for orderID when it is set.
func (s *Store) Exists(ctx context.Context, q infra.DBTX, helperID, requesterID types.ID, orderID *types.ID, day time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM check_ins
			WHERE helper_id = $1
			  AND check_in_day = $2
			  AND (requester_id = $3 OR ($4::text IS NOT NULL AND order_id = $4))
		)`, string(helperID), day, string(requesterID), toStringPtr(orderID),
	).Scan(&exists)
	return exists, errors.Wrap(err, "select check-in exists")
}

// Insert relies on the unique indexes for races the pre-check cannot see.
func (s *Store) Insert(ctx context.Context, q infra.DBTX, r *Record) error {
	_, err := q.Exec(ctx, `
		INSERT INTO check_ins (id, helper_id, requester_id, order_id, method, status, check_in_time, check_in_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(r.ID), string(r.HelperID), string(r.RequesterID), toStringPtr(r.OrderID),
		string(r.Method), r.Status, r.CheckInTime, r.CheckInDay,
	)
	if infra.IsUniqueViolation(err) {
		return &AlreadyCheckedInError{HelperID: r.HelperID, Day: r.CheckInDay}
	}
	return errors.Wrap(err, "insert check-in")
}

func (s *Store) ResolveCode(ctx context.Context, q infra.DBTX, code string) (types.ID, error) {
	var requesterID types.ID
	err := q.QueryRow(ctx, `SELECT requester_id FROM requester_codes WHERE code = $1`, code).Scan(&requesterID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrCodeNotFound
	}
	return requesterID, errors.Wrap(err, "select requester code")
}

// GetOrCreateCode returns the requester's code, generating one on first use.
func (s *Store) GetOrCreateCode(ctx context.Context, q infra.DBTX, requesterID types.ID) (string, error) {
	var code string
	err := q.QueryRow(ctx, `SELECT code FROM requester_codes WHERE requester_id = $1`, string(requesterID)).Scan(&code)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", errors.Wrap(err, "select requester code")
	}
	for i := 0; i < maxCodeAttempts; i++ {
		code, err = newCode()
		if err != nil {
			return "", errors.Wrap(err, "generate personal code")
		}
		err = q.QueryRow(ctx, `
			INSERT INTO requester_codes (requester_id, code) VALUES ($1, $2)
			ON CONFLICT (requester_id) DO UPDATE SET requester_id = EXCLUDED.requester_id
			RETURNING code`, string(requesterID), code).Scan(&code)
		if infra.IsUniqueViolation(err) {
			continue
		}
		return code, errors.Wrap(err, "insert requester code")
	}
	return "", errors.New("could not allocate a unique personal code")
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
