// README: Order service: creation with a pricing snapshot, transitions, direct match, cancel, close and closing reports.
package order

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/modules/pricing"
	"helperhub/internal/types"
)

type Repository interface {
	StatusRepository
	Create(ctx context.Context, q infra.DBTX, o *Order) error
	InsertClosingReport(ctx context.Context, q infra.DBTX, r *ClosingReport) error
	GetClosingReport(ctx context.Context, q infra.DBTX, orderID types.ID) (*ClosingReport, error)
}

type Quoter interface {
	QuoteWith(ctx context.Context, q infra.DBTX, req pricing.QuoteRequest) (pricing.Quote, error)
}

type Service struct {
	pool   infra.Pool
	repo   Repository
	quoter Quoter
	logger *slog.Logger
	now    func() time.Time
}

func NewService(pool infra.Pool, repo Repository, quoter Quoter, logger *slog.Logger) *Service {
	return &Service{pool: pool, repo: repo, quoter: quoter, logger: logger, now: time.Now}
}

type CreateCommand struct {
	RequesterID   types.ID
	CompanyName   string
	Category      string
	Quantity      int
	IsUrgent      bool
	ScheduledDate time.Time
	EndDate       *time.Time
}

type TransitionCommand struct {
	OrderID types.ID
	To      Status
	Actor   Actor
	ActorID types.ID
	Reason  string
}

type MatchCommand struct {
	OrderID  types.ID
	HelperID types.ID
	AdminID  types.ID
}

type CancelCommand struct {
	OrderID types.ID
	Actor   Actor
	ActorID types.ID
	Reason  string
}

type ClosingCommand struct {
	OrderID        types.ID
	HelperID       types.ID
	DeliveredCount int
	Memo           string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	cmd.CompanyName = strings.TrimSpace(cmd.CompanyName)
	cmd.Category = strings.TrimSpace(cmd.Category)
	if cmd.RequesterID == "" || cmd.CompanyName == "" || cmd.Quantity <= 0 || cmd.ScheduledDate.IsZero() {
		return nil, ErrBadRequest
	}
	if cmd.EndDate != nil && cmd.EndDate.Before(cmd.ScheduledDate) {
		return nil, apperr.Validation("invalid_end_date", "endDate must not be before scheduledDate")
	}

	var created *Order
	err := infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		quote, err := s.quoter.QuoteWith(ctx, tx, pricing.QuoteRequest{
			CompanyName: cmd.CompanyName,
			Category:    cmd.Category,
			Quantity:    cmd.Quantity,
			IsUrgent:    cmd.IsUrgent,
		})
		if err != nil {
			return err
		}
		now := s.now()
		o := &Order{
			ID:            types.NewID(),
			RequesterID:   cmd.RequesterID,
			Status:        StatusOpen,
			CompanyName:   cmd.CompanyName,
			Category:      cmd.Category,
			Quantity:      cmd.Quantity,
			PricePerUnit:  quote.FinalPricePerBox,
			IsUrgent:      cmd.IsUrgent,
			ScheduledDate: cmd.ScheduledDate,
			EndDate:       cmd.EndDate,
			Pricing:       quote.Snapshot,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Create(ctx, tx, o); err != nil {
			return err
		}
		if err := s.repo.AppendEvent(ctx, tx, &Event{
			OrderID:    o.ID,
			FromStatus: StatusNone,
			ToStatus:   StatusOpen,
			Actor:      ActorRequester,
			ActorID:    cmd.RequesterID.Ptr(),
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.repo.Get(ctx, s.pool, id)
}

// Transition loads the order and applies one edge inside a transaction.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Order, error) {
	return s.transition(ctx, cmd.OrderID, TransitionRequest{
		To:      cmd.To,
		Actor:   cmd.Actor,
		ActorID: cmd.ActorID.Ptr(),
		Reason:  cmd.Reason,
	})
}

func (s *Service) transition(ctx context.Context, id types.ID, req TransitionRequest) (*Order, error) {
	if !req.To.Valid() || !req.Actor.Valid() {
		return nil, ErrBadRequest
	}
	var out *Order
	err := infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		o, err := s.repo.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		out, err = Transition(ctx, tx, s.repo, o, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order transitioned", "order_id", out.ID, "to", out.Status, "actor", req.Actor, "version", out.StatusVersion)
	return out, nil
}

// Match binds a helper directly and schedules the order.
func (s *Service) Match(ctx context.Context, cmd MatchCommand) (*Order, error) {
	if cmd.OrderID == "" || cmd.HelperID == "" {
		return nil, ErrBadRequest
	}
	return s.transition(ctx, cmd.OrderID, TransitionRequest{
		To:              StatusScheduled,
		Actor:           ActorAdmin,
		ActorID:         cmd.AdminID.Ptr(),
		MatchedHelperID: cmd.HelperID.Ptr(),
	})
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	return s.transition(ctx, cmd.OrderID, TransitionRequest{
		To:      StatusCancelled,
		Actor:   cmd.Actor,
		ActorID: cmd.ActorID.Ptr(),
		Reason:  strings.TrimSpace(cmd.Reason),
	})
}

func (s *Service) Close(ctx context.Context, orderID, adminID types.ID) (*Order, error) {
	return s.transition(ctx, orderID, TransitionRequest{
		To:      StatusClosed,
		Actor:   ActorAdmin,
		ActorID: adminID.Ptr(),
	})
}

// SubmitClosing stores the report and moves in_progress to closing_submitted atomically.
func (s *Service) SubmitClosing(ctx context.Context, cmd ClosingCommand) (*ClosingReport, *Order, error) {
	if cmd.OrderID == "" || cmd.HelperID == "" || cmd.DeliveredCount < 0 {
		return nil, nil, ErrBadRequest
	}
	var (
		report  *ClosingReport
		updated *Order
	)
	err := infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		o, err := s.repo.Get(ctx, tx, cmd.OrderID)
		if err != nil {
			return err
		}
		if !o.MatchedTo(cmd.HelperID) {
			return ErrNotAssigned
		}
		r := &ClosingReport{
			ID:             types.NewID(),
			OrderID:        o.ID,
			HelperID:       cmd.HelperID,
			DeliveredCount: cmd.DeliveredCount,
			Memo:           strings.TrimSpace(cmd.Memo),
			SubmittedAt:    s.now(),
		}
		updated, err = Transition(ctx, tx, s.repo, o, TransitionRequest{
			To:      StatusClosingSubmitted,
			Actor:   ActorHelper,
			ActorID: cmd.HelperID.Ptr(),
		})
		if err != nil {
			return err
		}
		if err := s.repo.InsertClosingReport(ctx, tx, r); err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if cmd.DeliveredCount != updated.Quantity {
		s.logger.Warn("delivered count differs from ordered quantity", "order_id", updated.ID, "quantity", updated.Quantity, "delivered", cmd.DeliveredCount)
	}
	return report, updated, nil
}

func (s *Service) GetClosingReport(ctx context.Context, orderID types.ID) (*ClosingReport, error) {
	return s.repo.GetClosingReport(ctx, s.pool, orderID)
}
