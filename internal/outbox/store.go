// README: Outbox persistence. Enqueue runs inside the caller's transaction.
package outbox

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"helperhub/internal/infra"
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Enqueue(ctx context.Context, q infra.DBTX, aggregateID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal outbox payload")
	}
	_, err = q.Exec(ctx, `
		INSERT INTO outbox (aggregate_id, event_type, payload, status, attempts)
		VALUES ($1, $2, $3, 'pending', 0)`,
		aggregateID, eventType, body,
	)
	return errors.Wrap(err, "insert outbox")
}

// ClaimPending locks up to limit pending rows; concurrent relays skip rows
// already claimed by another transaction.
func (s *Store) ClaimPending(ctx context.Context, q infra.DBTX, limit int) ([]Message, error) {
	rows, err := q.Query(ctx, `
		SELECT id, aggregate_id, event_type, payload, status, attempts, created_at
		FROM outbox
		WHERE status = 'pending'
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "claim outbox")
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.AggregateID, &m.EventType, &m.Payload, &m.Status, &m.Attempts, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan outbox")
		}
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "iterate outbox")
}

func (s *Store) MarkSent(ctx context.Context, q infra.DBTX, id int64) error {
	_, err := q.Exec(ctx, `UPDATE outbox SET status = 'sent', sent_at = NOW() WHERE id = $1`, id)
	return errors.Wrap(err, "mark outbox sent")
}

// RecordFailure bumps attempts and parks the row as failed once maxAttempts is reached.
func (s *Store) RecordFailure(ctx context.Context, q infra.DBTX, id int64, maxAttempts int) error {
	_, err := q.Exec(ctx, `
		UPDATE outbox
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE status END
		WHERE id = $1`, id, maxAttempts)
	return errors.Wrap(err, "record outbox failure")
}
