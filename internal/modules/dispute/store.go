// README: Dispute persistence backed by PostgreSQL with status compare-and-set.
package dispute

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"helperhub/internal/infra"
	"helperhub/internal/types"
)

const fkSettlement = "disputes_settlement_id_fkey"

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

const disputeColumns = `id, order_id, settlement_id, helper_id, filed_by, filed_by_role, dispute_type,
	COALESCE(description, ''), status, reported_count, requested_count, accepted_count,
	deduction_amount, deduction_id, COALESCE(resolution, ''), COALESCE(admin_reply, ''),
	resolved_at, created_at, updated_at`

func scanDispute(row pgx.Row) (*Dispute, error) {
	var d Dispute
	var settlementID, deductionID *string
	err := row.Scan(&d.ID, &d.OrderID, &settlementID, &d.HelperID, &d.FiledBy, &d.FiledByRole, &d.DisputeType,
		&d.Description, &d.Status, &d.ReportedCount, &d.RequestedCount, &d.AcceptedCount,
		&d.DeductionAmount, &deductionID, &d.Resolution, &d.AdminReply,
		&d.ResolvedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if settlementID != nil {
		d.SettlementID = types.ID(*settlementID).Ptr()
	}
	if deductionID != nil {
		d.DeductionID = types.ID(*deductionID).Ptr()
	}
	return &d, nil
}

func (s *Store) Create(ctx context.Context, q infra.DBTX, d *Dispute) error {
	_, err := q.Exec(ctx, `
		INSERT INTO disputes (
			id, order_id, settlement_id, helper_id, filed_by, filed_by_role, dispute_type,
			description, status, reported_count, requested_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(d.ID), string(d.OrderID), idPtr(d.SettlementID), string(d.HelperID), string(d.FiledBy),
		string(d.FiledByRole), d.DisputeType, nullable(d.Description), string(d.Status),
		d.ReportedCount, d.RequestedCount, d.CreatedAt, d.UpdatedAt,
	)
	if infra.ForeignKeyViolationConstraint(err) == fkSettlement {
		return ErrSettlementNotFound
	}
	return errors.Wrap(err, "insert dispute")
}

func (s *Store) Get(ctx context.Context, q infra.DBTX, id types.ID) (*Dispute, error) {
	d, err := scanDispute(q.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, errors.Wrap(err, "select dispute")
}

// CompareAndSetStatus writes the new status and resolution fields only while
// the row still holds from. Terminal rows never match because no edge
// leaves a terminal status.
func (s *Store) CompareAndSetStatus(ctx context.Context, q infra.DBTX, from Status, d *Dispute) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE disputes
		SET status = $3,
		    accepted_count = $4,
		    deduction_amount = $5,
		    deduction_id = $6,
		    resolution = $7,
		    admin_reply = $8,
		    resolved_at = $9,
		    updated_at = $10
		WHERE id = $1 AND status = $2`,
		string(d.ID), string(from), string(d.Status), d.AcceptedCount, d.DeductionAmount, idPtr(d.DeductionID),
		nullable(d.Resolution), nullable(d.AdminReply), d.ResolvedAt, d.UpdatedAt,
	)
	if err != nil {
		return false, errors.Wrap(err, "update dispute status")
	}
	return tag.RowsAffected() == 1, nil
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
