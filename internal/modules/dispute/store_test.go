package dispute

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"helperhub/internal/apperr"
	"helperhub/internal/types"
)

// execErr answers every Exec with err.
type execErr struct{ err error }

func (e execErr) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, e.err
}

func (e execErr) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, e.err }

func (e execErr) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func TestStore_CreateMapsUnknownSettlement(t *testing.T) {
	now := time.Now()
	d := &Dispute{
		ID: "d-1", OrderID: orderID, SettlementID: types.ID("st-missing").Ptr(), HelperID: helperID,
		FiledBy: helperID, DisputeType: "count_mismatch", Status: StatusPending, CreatedAt: now, UpdatedAt: now,
	}

	err := NewStore().Create(context.Background(), execErr{err: &pgconn.PgError{Code: "23503", ConstraintName: fkSettlement}}, d)
	require.ErrorIs(t, err, ErrSettlementNotFound)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = NewStore().Create(context.Background(), execErr{err: &pgconn.PgError{Code: "23503", ConstraintName: "disputes_order_id_fkey"}}, d)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSettlementNotFound)
}
