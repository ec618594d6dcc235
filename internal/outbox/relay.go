// README: Relay polls pending outbox rows and publishes them to Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"helperhub/internal/infra"
)

type Repository interface {
	ClaimPending(ctx context.Context, q infra.DBTX, limit int) ([]Message, error)
	MarkSent(ctx context.Context, q infra.DBTX, id int64) error
	RecordFailure(ctx context.Context, q infra.DBTX, id int64, maxAttempts int) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RelayConfig struct {
	Topic        string
	BatchSize    int
	MaxAttempts  int
	PollInterval time.Duration
}

type Relay struct {
	pool   infra.TxBeginner
	repo   Repository
	pub    Publisher
	cfg    RelayConfig
	logger *slog.Logger
}

func NewRelay(pool infra.TxBeginner, repo Repository, pub Publisher, cfg RelayConfig, logger *slog.Logger) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Relay{pool: pool, repo: repo, pub: pub, cfg: cfg, logger: logger}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("outbox relay started", "topic", r.cfg.Topic, "interval", r.cfg.PollInterval)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("outbox relay batch failed", "err", err)
			}
		}
	}
}

// RunOnce publishes one batch and reports how many rows were sent and failed.
func (r *Relay) RunOnce(ctx context.Context) (sent, failed int, err error) {
	err = infra.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		sent, failed = 0, 0
		msgs, err := r.repo.ClaimPending(ctx, tx, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if pubErr := r.pub.Publish(ctx, r.cfg.Topic, []byte(m.AggregateID), m.Payload); pubErr != nil {
				failed++
				r.logger.Warn("outbox publish failed", "id", m.ID, "event_type", m.EventType, "attempts", m.Attempts+1, "err", pubErr)
				if err := r.repo.RecordFailure(ctx, tx, m.ID, r.cfg.MaxAttempts); err != nil {
					return err
				}
				continue
			}
			if err := r.repo.MarkSent(ctx, tx, m.ID); err != nil {
				return err
			}
			sent++
		}
		return nil
	})
	return sent, failed, err
}
