// README: Payment service registers gateway payments and applies webhook deliveries.
package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type Repository interface {
	Register(ctx context.Context, q infra.DBTX, p *Payment) error
	GetForUpdate(ctx context.Context, q infra.DBTX, paymentID string) (*Payment, error)
	CompareAndSetStatus(ctx context.Context, q infra.DBTX, paymentID string, status Status, at time.Time) (bool, error)
	RecordEvent(ctx context.Context, q infra.DBTX, paymentID, eventType string, at time.Time) (bool, error)
}

type Service struct {
	pool   infra.Pool
	repo   Repository
	orders order.StatusRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(pool infra.Pool, repo Repository, orders order.StatusRepository, logger *slog.Logger) *Service {
	return &Service{pool: pool, repo: repo, orders: orders, logger: logger, now: time.Now}
}

type RegisterCommand struct {
	OrderID   types.ID
	PaymentID string
	Purpose   Purpose
	Amount    int64
	AdminID   types.ID
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Payment, error) {
	cmd.PaymentID = strings.TrimSpace(cmd.PaymentID)
	if cmd.OrderID == "" || cmd.PaymentID == "" || !cmd.Purpose.Valid() || cmd.Amount < 0 {
		return nil, apperr.Validation("invalid_payment", "orderId, paymentId and purpose balance|settlement are required")
	}
	if _, err := s.orders.Get(ctx, s.pool, cmd.OrderID); err != nil {
		return nil, err
	}
	now := s.now()
	p := &Payment{
		PaymentID: cmd.PaymentID,
		OrderID:   cmd.OrderID,
		Purpose:   cmd.Purpose,
		Status:    StatusRegistered,
		Amount:    cmd.Amount,
		CreatedBy: cmd.AdminID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Register(ctx, s.pool, p); err != nil {
		return nil, err
	}
	s.logger.Info("payment registered", "payment_id", p.PaymentID, "order_id", p.OrderID, "purpose", p.Purpose)
	return p, nil
}

// ParseWebhook decodes a gateway delivery.
func ParseWebhook(body []byte) (Webhook, error) {
	var w Webhook
	if err := json.Unmarshal(body, &w); err != nil {
		return Webhook{}, apperr.Wrap(apperr.KindExternalService, "invalid_webhook_payload", err)
	}
	if w.Type == "" || strings.TrimSpace(w.Data.PaymentID) == "" {
		return Webhook{}, ErrInvalidPayload
	}
	return w, nil
}

// HandleWebhook applies one delivery. The dedup key, the payment status and
// any order transition commit together, so a redelivery is a no-op. A
// delivery that arrives after the payment left its source states (a late
// cancel after paid) changes nothing.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) (Outcome, error) {
	w, err := ParseWebhook(body)
	if err != nil {
		return Outcome{}, err
	}
	var next Status
	switch w.Type {
	case EventPaid:
		next = StatusPaid
	case EventCancelled:
		next = StatusCancelled
	case EventFailed:
		next = StatusFailed
	default:
		return Outcome{Type: w.Type, PaymentID: w.Data.PaymentID}, ErrUnknownEvent
	}

	out := Outcome{PaymentID: w.Data.PaymentID, Type: w.Type}
	err = infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		now := s.now()
		fresh, err := s.repo.RecordEvent(ctx, tx, w.Data.PaymentID, w.Type, now)
		if err != nil {
			return err
		}
		if !fresh {
			out.Duplicate = true
			return nil
		}
		p, err := s.repo.GetForUpdate(ctx, tx, w.Data.PaymentID)
		if err != nil {
			return err
		}
		changed, err := s.repo.CompareAndSetStatus(ctx, tx, p.PaymentID, next, now)
		if err != nil {
			return err
		}
		if !changed {
			out.Stale = true
			return nil
		}
		if next != StatusPaid {
			return nil
		}
		o, err := s.orders.Get(ctx, tx, p.OrderID)
		if err != nil {
			return err
		}
		updated, err := order.Transition(ctx, tx, s.orders, o, order.TransitionRequest{
			To:     p.Purpose.Target(),
			Actor:  order.ActorSystem,
			Reason: w.Type + " " + p.PaymentID,
		})
		if err != nil {
			return err
		}
		out.OrderStatus = updated.Status
		return nil
	})
	if err != nil {
		return out, err
	}
	switch {
	case out.Duplicate:
		s.logger.Info("duplicate webhook ignored", "payment_id", out.PaymentID, "type", out.Type)
	case out.Stale:
		s.logger.Warn("stale webhook ignored", "payment_id", out.PaymentID, "type", out.Type)
	default:
		s.logger.Info("webhook applied", "payment_id", out.PaymentID, "type", out.Type, "order_status", out.OrderStatus)
	}
	return out, nil
}
