// README: Application service: helpers apply, requesters select, admins approve; either may reject.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type Repository interface {
	Create(ctx context.Context, q infra.DBTX, a *Application) error
	Get(ctx context.Context, q infra.DBTX, id types.ID) (*Application, error)
	ListByHelper(ctx context.Context, q infra.DBTX, helperID types.ID) ([]Application, error)
	CompareAndSetStatus(ctx context.Context, q infra.DBTX, id types.ID, from, to Status, checkedInAt *time.Time) (bool, error)
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

type ApplyCommand struct {
	OrderID  types.ID
	HelperID types.ID
}

type DecideCommand struct {
	ApplicationID types.ID
	Decision      Decision
	Actor         order.Actor
	ActorID       types.ID
}

// Apply records a pending application. The first application on an open
// order moves it to matching.
func (s *Service) Apply(ctx context.Context, cmd ApplyCommand) (*Application, error) {
	if cmd.OrderID == "" || cmd.HelperID == "" {
		return nil, order.ErrBadRequest
	}
	var created *Application
	err := infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		o, err := s.orders.Get(ctx, tx, cmd.OrderID)
		if err != nil {
			return err
		}
		if o.Status != order.StatusOpen && o.Status != order.StatusMatching {
			return apperr.Conflict("order_not_accepting_applications", "order is not accepting applications")
		}
		now := s.now()
		a := &Application{
			ID:        types.NewID(),
			OrderID:   o.ID,
			HelperID:  cmd.HelperID,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, tx, a); err != nil {
			return err
		}
		if o.Status == order.StatusOpen {
			if _, err := order.Transition(ctx, tx, s.orders, o, order.TransitionRequest{
				To:    order.StatusMatching,
				Actor: order.ActorSystem,
			}); err != nil {
				return err
			}
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Decide applies a requester or admin decision. Approve and select also
// schedule the order in the same transaction; rejecting the active
// application puts a scheduled order back into matching.
func (s *Service) Decide(ctx context.Context, cmd DecideCommand) (*Application, error) {
	to, ok := cmd.Decision.Target()
	if !ok || cmd.ApplicationID == "" {
		return nil, order.ErrBadRequest
	}
	if err := decisionAllowed(cmd.Decision, cmd.Actor); err != nil {
		return nil, err
	}

	var decided *Application
	err := infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		a, err := s.repo.Get(ctx, tx, cmd.ApplicationID)
		if err != nil {
			return err
		}
		o, err := s.orders.Get(ctx, tx, a.OrderID)
		if err != nil {
			return err
		}
		if cmd.Actor == order.ActorRequester && o.RequesterID != cmd.ActorID {
			return apperr.Authorization("not_order_owner", "order belongs to another requester")
		}
		if !CanTransition(a.Status, to) {
			return apperr.Conflict("illegal_application_transition", "application cannot move from "+string(a.Status)+" to "+string(to))
		}
		wasActive := a.Active()
		changed, err := s.repo.CompareAndSetStatus(ctx, tx, a.ID, a.Status, to, nil)
		if err != nil {
			return err
		}
		if !changed {
			return ErrStale
		}
		switch {
		case to != StatusRejected:
			if _, err := order.Transition(ctx, tx, s.orders, o, order.TransitionRequest{
				To:      order.StatusScheduled,
				Actor:   cmd.Actor,
				ActorID: cmd.ActorID.Ptr(),
			}); err != nil {
				return err
			}
		case wasActive && o.Status == order.StatusScheduled:
			// The rejected helper was the binding; reopen the order for new applications.
			if _, err := order.Transition(ctx, tx, s.orders, o, order.TransitionRequest{
				To:      order.StatusMatching,
				Actor:   cmd.Actor,
				ActorID: cmd.ActorID.Ptr(),
				Reason:  "active application rejected",
			}); err != nil {
				return err
			}
		}
		a.Status = to
		a.UpdatedAt = s.now()
		decided = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("application decided", "application_id", decided.ID, "order_id", decided.OrderID, "status", decided.Status, "actor", cmd.Actor)
	return decided, nil
}

func decisionAllowed(d Decision, actor order.Actor) error {
	switch {
	case d == DecisionApprove && actor == order.ActorAdmin,
		d == DecisionSelect && actor == order.ActorRequester,
		d == DecisionReject && (actor == order.ActorAdmin || actor == order.ActorRequester):
		return nil
	}
	return order.ErrActorNotAllowed
}
