// README: Outbox message persisted alongside state changes and relayed to Kafka.
package outbox

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Message struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	Status      Status
	Attempts    int
	CreatedAt   time.Time
}
