// README: Order store backed by PostgreSQL. Methods take the querier so they compose inside transactions.
package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"helperhub/internal/infra"
	"helperhub/internal/outbox"
	"helperhub/internal/types"
)

// EventStatusChanged is the outbox event type for every transition.
const EventStatusChanged = "order.status_changed"

type Store struct {
	outbox *outbox.Store
}

func NewStore() *Store {
	return &Store{outbox: outbox.NewStore()}
}

const orderColumns = `id, requester_id, status, status_version, matched_helper_id,
	company_name, category, quantity, price_per_unit, is_urgent,
	scheduled_date, end_date, pricing_snapshot, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var helperID *string
	var snapshot []byte
	err := row.Scan(
		&o.ID, &o.RequesterID, &o.Status, &o.StatusVersion, &helperID,
		&o.CompanyName, &o.Category, &o.Quantity, &o.PricePerUnit, &o.IsUrgent,
		&o.ScheduledDate, &o.EndDate, &snapshot, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if helperID != nil {
		o.MatchedHelperID = types.ID(*helperID).Ptr()
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &o.Pricing); err != nil {
			return nil, errors.Wrap(err, "decode pricing snapshot")
		}
	}
	return &o, nil
}

func (s *Store) Create(ctx context.Context, q infra.DBTX, o *Order) error {
	snapshot, err := json.Marshal(o.Pricing)
	if err != nil {
		return errors.Wrap(err, "encode pricing snapshot")
	}
	_, err = q.Exec(ctx, `
		INSERT INTO orders (
			id, requester_id, status, status_version, matched_helper_id,
			company_name, category, quantity, price_per_unit, is_urgent,
			scheduled_date, end_date, pricing_snapshot, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)`,
		string(o.ID), string(o.RequesterID), string(o.Status), o.StatusVersion, toStringPtr(o.MatchedHelperID),
		o.CompanyName, o.Category, o.Quantity, o.PricePerUnit, o.IsUrgent,
		o.ScheduledDate, o.EndDate, snapshot, o.CreatedAt, o.UpdatedAt,
	)
	return errors.Wrap(err, "insert order")
}

func (s *Store) Get(ctx context.Context, q infra.DBTX, id types.ID) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, errors.Wrap(err, "select order")
}

// CompareAndSetStatus reports false when the row no longer matches From/Version.
func (s *Store) CompareAndSetStatus(ctx context.Context, q infra.DBTX, c StatusChange) (*Order, bool, error) {
	o, err := scanOrder(q.QueryRow(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    matched_helper_id = COALESCE($2, matched_helper_id),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4 AND status_version = $5
		RETURNING `+orderColumns,
		string(c.To), toStringPtr(c.MatchedHelperID), string(c.OrderID), string(c.From), c.Version,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "update order status")
	}
	return o, true, nil
}

type statusChangedPayload struct {
	OrderID    types.ID  `json:"orderId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Version    int       `json:"version"`
	Actor      Actor     `json:"actor"`
	ActorID    *types.ID `json:"actorId,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AppendEvent records the transition in order_state_events and the outbox.
func (s *Store) AppendEvent(ctx context.Context, q infra.DBTX, e *Event) error {
	var reason *string
	if e.Reason != "" {
		reason = &e.Reason
	}
	_, err := q.Exec(ctx, `
		INSERT INTO order_state_events (
			order_id, from_status, to_status, status_version, actor_type, actor_id, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(e.OrderID), string(e.FromStatus), string(e.ToStatus), e.Version,
		string(e.Actor), toStringPtr(e.ActorID), reason, e.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert order event")
	}
	return s.outbox.Enqueue(ctx, q, string(e.OrderID), EventStatusChanged, statusChangedPayload{
		OrderID:    e.OrderID,
		From:       e.FromStatus,
		To:         e.ToStatus,
		Version:    e.Version,
		Actor:      e.Actor,
		ActorID:    e.ActorID,
		Reason:     e.Reason,
		OccurredAt: e.CreatedAt,
	})
}

func (s *Store) ListEvents(ctx context.Context, q infra.DBTX, orderID types.ID) ([]Event, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, from_status, to_status, status_version, actor_type, actor_id, COALESCE(reason, ''), created_at
		FROM order_state_events
		WHERE order_id = $1
		ORDER BY id`, string(orderID))
	if err != nil {
		return nil, errors.Wrap(err, "select order events")
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var actorID *string
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.Version, &e.Actor, &actorID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan order event")
		}
		if actorID != nil {
			e.ActorID = types.ID(*actorID).Ptr()
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate order events")
}

func (s *Store) listAssignable(ctx context.Context, q infra.DBTX, where string, arg any) ([]Order, error) {
	rows, err := q.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status IN ('open', 'scheduled') AND `+where+`
		ORDER BY scheduled_date, id`, arg)
	if err != nil {
		return nil, errors.Wrap(err, "select assignable orders")
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, *o)
	}
	return out, errors.Wrap(rows.Err(), "iterate orders")
}

func (s *Store) ListAssignableByRequester(ctx context.Context, q infra.DBTX, requesterID types.ID) ([]Order, error) {
	return s.listAssignable(ctx, q, "requester_id = $1", string(requesterID))
}

func (s *Store) ListAssignableByIDs(ctx context.Context, q infra.DBTX, ids []types.ID) ([]Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	return s.listAssignable(ctx, q, "id = ANY($1)", raw)
}

func (s *Store) InsertClosingReport(ctx context.Context, q infra.DBTX, r *ClosingReport) error {
	var memo *string
	if r.Memo != "" {
		memo = &r.Memo
	}
	_, err := q.Exec(ctx, `
		INSERT INTO closing_reports (id, order_id, helper_id, delivered_count, memo, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(r.ID), string(r.OrderID), string(r.HelperID), r.DeliveredCount, memo, r.SubmittedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrClosingExists
	}
	return errors.Wrap(err, "insert closing report")
}

func (s *Store) GetClosingReport(ctx context.Context, q infra.DBTX, orderID types.ID) (*ClosingReport, error) {
	var r ClosingReport
	err := q.QueryRow(ctx, `
		SELECT id, order_id, helper_id, delivered_count, COALESCE(memo, ''), submitted_at
		FROM closing_reports WHERE order_id = $1`, string(orderID),
	).Scan(&r.ID, &r.OrderID, &r.HelperID, &r.DeliveredCount, &r.Memo, &r.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClosingNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select closing report")
	}
	return &r, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
