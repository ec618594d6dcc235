// README: Settlement and deduction persistence backed by PostgreSQL.
package settlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"helperhub/internal/infra"
	"helperhub/internal/types"
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) CreateDeduction(ctx context.Context, q infra.DBTX, d *Deduction) error {
	var disputeID *string
	if d.DisputeID != nil {
		v := string(*d.DisputeID)
		disputeID = &v
	}
	_, err := q.Exec(ctx, `
		INSERT INTO deductions (id, helper_id, amount, reason, dispute_id, settlement_applied, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
		string(d.ID), string(d.HelperID), d.Amount, d.Reason, disputeID, string(d.CreatedBy), d.CreatedAt,
	)
	return errors.Wrap(err, "insert deduction")
}

// ListUnapplied locks the helper's open deductions for the statement transaction.
func (s *Store) ListUnapplied(ctx context.Context, q infra.DBTX, helperID types.ID) ([]Deduction, error) {
	rows, err := q.Query(ctx, `
		SELECT id, helper_id, amount, reason, dispute_id, created_by, created_at
		FROM deductions
		WHERE helper_id = $1 AND NOT settlement_applied
		ORDER BY created_at, id
		FOR UPDATE`, string(helperID))
	if err != nil {
		return nil, errors.Wrap(err, "select deductions")
	}
	defer rows.Close()
	var out []Deduction
	for rows.Next() {
		var d Deduction
		var disputeID *string
		if err := rows.Scan(&d.ID, &d.HelperID, &d.Amount, &d.Reason, &disputeID, &d.CreatedBy, &d.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan deduction")
		}
		if disputeID != nil {
			d.DisputeID = types.ID(*disputeID).Ptr()
		}
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "iterate deductions")
}

func (s *Store) MarkApplied(ctx context.Context, q infra.DBTX, statementID types.ID, ids []types.ID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	tag, err := q.Exec(ctx, `
		UPDATE deductions
		SET settlement_applied = TRUE, statement_id = $1
		WHERE id = ANY($2) AND NOT settlement_applied`, string(statementID), raw)
	if err != nil {
		return errors.Wrap(err, "mark deductions applied")
	}
	if int(tag.RowsAffected()) != len(ids) {
		return errors.Errorf("marked %d of %d deductions", tag.RowsAffected(), len(ids))
	}
	return nil
}

// ListOrderInputs returns the helper's completed orders whose closing report
// was submitted within [from, to).
func (s *Store) ListOrderInputs(ctx context.Context, q infra.DBTX, helperID types.ID, from, to time.Time) ([]OrderInput, error) {
	rows, err := q.Query(ctx, `
		SELECT o.id, r.delivered_count, o.is_urgent, o.pricing_snapshot
		FROM orders o
		JOIN closing_reports r ON r.order_id = o.id
		WHERE o.matched_helper_id = $1
		  AND o.status IN ('closing_submitted', 'balance_paid', 'settlement_paid', 'closed')
		  AND r.submitted_at >= $2 AND r.submitted_at < $3
		ORDER BY r.submitted_at, o.id`, string(helperID), from, to)
	if err != nil {
		return nil, errors.Wrap(err, "select settlement orders")
	}
	defer rows.Close()
	var out []OrderInput
	for rows.Next() {
		var in OrderInput
		var snapshot []byte
		if err := rows.Scan(&in.OrderID, &in.DeliveredCount, &in.IsUrgent, &snapshot); err != nil {
			return nil, errors.Wrap(err, "scan settlement order")
		}
		if err := json.Unmarshal(snapshot, &in.Pricing); err != nil {
			return nil, errors.Wrap(err, "decode pricing snapshot")
		}
		out = append(out, in)
	}
	return out, errors.Wrap(rows.Err(), "iterate settlement orders")
}

func (s *Store) InsertStatement(ctx context.Context, q infra.DBTX, st *Statement) error {
	lines, err := json.Marshal(st.Lines)
	if err != nil {
		return errors.Wrap(err, "encode statement lines")
	}
	_, err = q.Exec(ctx, `
		INSERT INTO settlement_statements (
			id, helper_id, period, order_count, supply_amount, vat_amount, total_amount,
			commission_amount, team_commission_amount, deduction_amount, net_payout, lines, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(st.ID), string(st.HelperID), st.Period, st.OrderCount, st.SupplyAmount, st.VATAmount, st.TotalAmount,
		st.CommissionAmount, st.TeamCommissionAmount, st.DeductionAmount, st.NetPayout, lines, st.CreatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrStatementExists
	}
	return errors.Wrap(err, "insert statement")
}
