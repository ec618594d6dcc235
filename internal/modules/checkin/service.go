// README: Check-in service: resolves the assignment, guards one check-in per day, and starts the order atomically.
package checkin

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"helperhub/internal/infra"
	"helperhub/internal/modules/application"
	"helperhub/internal/modules/assignment"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type Repository interface {
	Exists(ctx context.Context, q infra.DBTX, helperID, requesterID types.ID, orderID *types.ID, day time.Time) (bool, error)
	Insert(ctx context.Context, q infra.DBTX, r *Record) error
	ResolveCode(ctx context.Context, q infra.DBTX, code string) (types.ID, error)
	GetOrCreateCode(ctx context.Context, q infra.DBTX, requesterID types.ID) (string, error)
}

type Resolver interface {
	ForOrder(ctx context.Context, q infra.DBTX, helperID, orderID types.ID) (*assignment.Assignment, error)
	ForRequester(ctx context.Context, q infra.DBTX, helperID, requesterID types.ID) (*assignment.Assignment, error)
}

type ApplicationUpdater interface {
	CompareAndSetStatus(ctx context.Context, q infra.DBTX, id types.ID, from, to application.Status, checkedInAt *time.Time) (bool, error)
}

type TokenStore interface {
	Issue(ctx context.Context, requesterID types.ID) (QRPayload, time.Time, error)
	Verify(ctx context.Context, requesterID types.ID, token string) error
}

type Service struct {
	pool     infra.Pool
	repo     Repository
	resolver Resolver
	orders   order.StatusRepository
	apps     ApplicationUpdater
	tokens   TokenStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(pool infra.Pool, repo Repository, resolver Resolver, orders order.StatusRepository, apps ApplicationUpdater, tokens TokenStore, logger *slog.Logger) *Service {
	return &Service{
		pool:     pool,
		repo:     repo,
		resolver: resolver,
		orders:   orders,
		apps:     apps,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckInByOrder is the direct order-id path used by the mobile app.
func (s *Service) CheckInByOrder(ctx context.Context, helperID, orderID types.ID) (*Result, error) {
	if helperID == "" || orderID == "" {
		return nil, order.ErrBadRequest
	}
	return s.checkIn(ctx, helperID, MethodOrder, func(tx pgx.Tx) (types.ID, *types.ID, error) {
		o, err := s.orders.Get(ctx, tx, orderID)
		if err != nil {
			return "", nil, err
		}
		return o.RequesterID, &o.ID, nil
	}, func(tx pgx.Tx, _ types.ID) (*assignment.Assignment, error) {
		return s.resolver.ForOrder(ctx, tx, helperID, orderID)
	})
}

func (s *Service) CheckInByQR(ctx context.Context, helperID types.ID, p QRPayload) (*Result, error) {
	if p.Type != QRType || p.RequesterID == "" || p.Token == "" {
		return nil, ErrInvalidQR
	}
	if err := s.tokens.Verify(ctx, p.RequesterID, p.Token); err != nil {
		return nil, err
	}
	return s.checkInRequester(ctx, helperID, MethodQR, func(pgx.Tx) (types.ID, error) {
		return p.RequesterID, nil
	})
}

func (s *Service) CheckInByCode(ctx context.Context, helperID types.ID, rawCode string) (*Result, error) {
	code, err := NormalizeCode(rawCode)
	if err != nil {
		return nil, err
	}
	return s.checkInRequester(ctx, helperID, MethodCode, func(tx pgx.Tx) (types.ID, error) {
		return s.repo.ResolveCode(ctx, tx, code)
	})
}

func (s *Service) IssueQRToken(ctx context.Context, requesterID types.ID) (QRPayload, time.Time, error) {
	if requesterID == "" {
		return QRPayload{}, time.Time{}, order.ErrBadRequest
	}
	return s.tokens.Issue(ctx, requesterID)
}

// RequesterCode must run outside a transaction: a code collision is retried
// and would otherwise abort the caller's transaction.
func (s *Service) RequesterCode(ctx context.Context, requesterID types.ID) (string, error) {
	if requesterID == "" {
		return "", order.ErrBadRequest
	}
	return s.repo.GetOrCreateCode(ctx, s.pool, requesterID)
}

func (s *Service) checkInRequester(ctx context.Context, helperID types.ID, m Method, requester func(pgx.Tx) (types.ID, error)) (*Result, error) {
	if helperID == "" {
		return nil, order.ErrBadRequest
	}
	return s.checkIn(ctx, helperID, m, func(tx pgx.Tx) (types.ID, *types.ID, error) {
		id, err := requester(tx)
		return id, nil, err
	}, func(tx pgx.Tx, requesterID types.ID) (*assignment.Assignment, error) {
		return s.resolver.ForRequester(ctx, tx, helperID, requesterID)
	})
}

// checkIn runs the guard before resolution so a repeated check-in reports
// AlreadyCheckedInError even though the order has already left open/scheduled.
// The record, the order transition and the application update share one
// transaction.
func (s *Service) checkIn(
	ctx context.Context,
	helperID types.ID,
	method Method,
	target func(tx pgx.Tx) (types.ID, *types.ID, error),
	resolve func(tx pgx.Tx, requesterID types.ID) (*assignment.Assignment, error),
) (*Result, error) {
	now := s.now()
	day := types.KSTDay(now)

	var res *Result
	err := infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		requesterID, orderID, err := target(tx)
		if err != nil {
			return err
		}
		dup, err := s.repo.Exists(ctx, tx, helperID, requesterID, orderID, day)
		if err != nil {
			return err
		}
		if dup {
			return &AlreadyCheckedInError{HelperID: helperID, Day: day}
		}

		asg, err := resolve(tx, requesterID)
		if err != nil {
			return err
		}

		rec := &Record{
			ID:          types.NewID(),
			HelperID:    helperID,
			RequesterID: asg.Order.RequesterID,
			OrderID:     asg.Order.ID.Ptr(),
			Method:      method,
			Status:      StatusCheckedIn,
			CheckInTime: now,
			CheckInDay:  day,
		}
		if err := s.repo.Insert(ctx, tx, rec); err != nil {
			return err
		}

		updated, err := order.Transition(ctx, tx, s.orders, &asg.Order, order.TransitionRequest{
			To:              order.StatusInProgress,
			Actor:           order.ActorHelper,
			ActorID:         helperID.Ptr(),
			MatchedHelperID: helperID.Ptr(),
		})
		if err != nil {
			return err
		}

		if asg.Application != nil {
			ok, err := s.apps.CompareAndSetStatus(ctx, tx, asg.Application.ID, asg.Application.Status, application.StatusInProgress, &now)
			if err != nil {
				return err
			}
			if !ok {
				return application.ErrStale
			}
		}

		res = &Result{Success: true, CheckIn: *rec, OrderStatus: updated.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("helper checked in", "helper_id", helperID, "order_id", *res.CheckIn.OrderID, "method", method, "day", day.Format("2006-01-02"))
	return res, nil
}
