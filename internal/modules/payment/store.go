// README: Payment and webhook dedup persistence backed by PostgreSQL.
package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"helperhub/internal/infra"
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Register(ctx context.Context, q infra.DBTX, p *Payment) error {
	_, err := q.Exec(ctx, `
		INSERT INTO payments (payment_id, order_id, purpose, status, amount, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.PaymentID, string(p.OrderID), string(p.Purpose), string(p.Status), p.Amount, string(p.CreatedBy), p.CreatedAt, p.UpdatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrPaymentExists
	}
	return errors.Wrap(err, "insert payment")
}

// GetForUpdate locks the payment row for the webhook transaction.
func (s *Store) GetForUpdate(ctx context.Context, q infra.DBTX, paymentID string) (*Payment, error) {
	var p Payment
	err := q.QueryRow(ctx, `
		SELECT payment_id, order_id, purpose, status, amount, created_by, paid_at, created_at, updated_at
		FROM payments WHERE payment_id = $1 FOR UPDATE`, paymentID,
	).Scan(&p.PaymentID, &p.OrderID, &p.Purpose, &p.Status, &p.Amount, &p.CreatedBy, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select payment")
	}
	return &p, nil
}

// CompareAndSetStatus moves the payment to status only while it is still in
// one of status.Sources(). It reports false for a stale delivery.
func (s *Store) CompareAndSetStatus(ctx context.Context, q infra.DBTX, paymentID string, status Status, at time.Time) (bool, error) {
	var paidAt *time.Time
	if status == StatusPaid {
		paidAt = &at
	}
	sources := make([]string, 0, 2)
	for _, src := range status.Sources() {
		sources = append(sources, string(src))
	}
	tag, err := q.Exec(ctx, `
		UPDATE payments SET status = $2, paid_at = COALESCE($3, paid_at), updated_at = $4
		WHERE payment_id = $1 AND status = ANY($5)`, paymentID, string(status), paidAt, at, sources)
	if err != nil {
		return false, errors.Wrap(err, "update payment status")
	}
	return tag.RowsAffected() == 1, nil
}

// RecordEvent inserts the (paymentId, type) dedup key. It reports false
// when the delivery was already processed.
func (s *Store) RecordEvent(ctx context.Context, q infra.DBTX, paymentID, eventType string, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO payment_webhook_events (payment_id, type, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (payment_id, type) DO NOTHING`, paymentID, eventType, at)
	if err != nil {
		return false, errors.Wrap(err, "insert webhook event")
	}
	return tag.RowsAffected() == 1, nil
}
