// README: Dispute service handles filing and the admin review workflow.
package dispute

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/modules/order"
	"helperhub/internal/modules/settlement"
	"helperhub/internal/types"
)

type Repository interface {
	Create(ctx context.Context, q infra.DBTX, d *Dispute) error
	Get(ctx context.Context, q infra.DBTX, id types.ID) (*Dispute, error)
	CompareAndSetStatus(ctx context.Context, q infra.DBTX, from Status, d *Dispute) (bool, error)
}

type OrderReader interface {
	Get(ctx context.Context, q infra.DBTX, id types.ID) (*order.Order, error)
	GetClosingReport(ctx context.Context, q infra.DBTX, orderID types.ID) (*order.ClosingReport, error)
}

type DeductionWriter interface {
	CreateDeduction(ctx context.Context, q infra.DBTX, d *settlement.Deduction) error
}

type Service struct {
	pool       infra.Pool
	repo       Repository
	orders     OrderReader
	deductions DeductionWriter
	teams      settlement.TeamLookup
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(pool infra.Pool, repo Repository, orders OrderReader, deductions DeductionWriter, teams settlement.TeamLookup, logger *slog.Logger) *Service {
	return &Service{pool: pool, repo: repo, orders: orders, deductions: deductions, teams: teams, logger: logger, now: time.Now}
}

type FileCommand struct {
	OrderID        types.ID
	FiledBy        types.ID
	Role           order.Actor
	DisputeType    string
	Description    string
	RequestedCount *int
	SettlementID   *types.ID
}

type UpdateCommand struct {
	DisputeID       types.ID
	Status          Status
	AdminID         types.ID
	Resolution      string
	AdminReply      string
	AcceptedCount   *int
	DeductionAmount *int64
}

// File opens a pending dispute against a completed order. Only the matched
// helper or the owning requester may file.
func (s *Service) File(ctx context.Context, cmd FileCommand) (*Dispute, error) {
	cmd.DisputeType = strings.TrimSpace(cmd.DisputeType)
	if cmd.OrderID == "" || cmd.FiledBy == "" || cmd.DisputeType == "" {
		return nil, apperr.Validation("invalid_dispute", "orderId and disputeType are required")
	}
	if cmd.RequestedCount != nil && *cmd.RequestedCount < 0 {
		return nil, apperr.Validation("invalid_dispute", "requestedCount must be non-negative")
	}

	o, err := s.orders.Get(ctx, s.pool, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	switch cmd.Role {
	case order.ActorHelper:
		if !o.MatchedTo(cmd.FiledBy) {
			return nil, ErrNotParty
		}
	case order.ActorRequester:
		if o.RequesterID != cmd.FiledBy {
			return nil, ErrNotParty
		}
	default:
		return nil, ErrNotParty
	}
	if !o.Status.Completed() {
		return nil, ErrOrderNotComplete
	}
	report, err := s.orders.GetClosingReport(ctx, s.pool, o.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &Dispute{
		ID:             types.NewID(),
		OrderID:        o.ID,
		SettlementID:   cmd.SettlementID,
		HelperID:       *o.MatchedHelperID,
		FiledBy:        cmd.FiledBy,
		FiledByRole:    cmd.Role,
		DisputeType:    cmd.DisputeType,
		Description:    strings.TrimSpace(cmd.Description),
		Status:         StatusPending,
		ReportedCount:  report.DeliveredCount,
		RequestedCount: cmd.RequestedCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, s.pool, d); err != nil {
		return nil, err
	}
	s.logger.Info("dispute filed", "dispute_id", d.ID, "order_id", d.OrderID, "role", d.FiledByRole)
	return d, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Dispute, error) {
	return s.repo.Get(ctx, s.pool, id)
}

// UpdateStatus moves a dispute along its review flow. Resolving with an
// accepted count or an explicit amount records the deduction in the same
// transaction. An accepted count is priced from the order's snapshot, so
// the correction equals the change in statement payout.
func (s *Service) UpdateStatus(ctx context.Context, cmd UpdateCommand) (*Dispute, error) {
	if !cmd.Status.Valid() {
		return nil, apperr.Validation("invalid_status", fmt.Sprintf("unknown dispute status %q", cmd.Status))
	}
	if cmd.AcceptedCount != nil && *cmd.AcceptedCount < 0 {
		return nil, apperr.Validation("invalid_dispute", "acceptedCount must be non-negative")
	}

	var out *Dispute
	err := infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := s.repo.Get(ctx, tx, cmd.DisputeID)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return &TerminalError{DisputeID: cur.ID, Status: cur.Status}
		}
		if !CanTransition(cur.Status, cmd.Status) {
			return &IllegalTransitionError{DisputeID: cur.ID, From: cur.Status, To: cmd.Status}
		}

		now := s.now()
		next := *cur
		next.Status = cmd.Status
		next.UpdatedAt = now
		if reply := strings.TrimSpace(cmd.AdminReply); reply != "" {
			next.AdminReply = reply
		}
		if next.Status.Terminal() {
			next.Resolution = strings.TrimSpace(cmd.Resolution)
			next.ResolvedAt = &now
		}
		if next.Status == StatusResolved {
			if err := s.applyDeduction(ctx, tx, &next, cmd); err != nil {
				return err
			}
		}

		ok, err := s.repo.CompareAndSetStatus(ctx, tx, cur.Status, &next)
		if err != nil {
			return err
		}
		if !ok {
			latest, err := s.repo.Get(ctx, tx, cur.ID)
			if err != nil {
				return err
			}
			if latest.Status.Terminal() {
				return &TerminalError{DisputeID: latest.ID, Status: latest.Status}
			}
			return &IllegalTransitionError{DisputeID: latest.ID, From: latest.Status, To: cmd.Status}
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("dispute updated", "dispute_id", out.ID, "status", out.Status, "admin_id", cmd.AdminID)
	return out, nil
}

func (s *Service) applyDeduction(ctx context.Context, tx pgx.Tx, d *Dispute, cmd UpdateCommand) error {
	var amount int64
	switch {
	case cmd.DeductionAmount != nil:
		amount = *cmd.DeductionAmount
	case cmd.AcceptedCount != nil:
		o, err := s.orders.Get(ctx, tx, d.OrderID)
		if err != nil {
			return err
		}
		team, err := s.teams.ActiveTeamFor(ctx, tx, d.HelperID)
		if err != nil {
			return err
		}
		rate := settlement.TeamRate{}
		if team != nil {
			rate = settlement.TeamRate{HasTeam: true, Rate: team.CommissionRate}
		}
		amount = settlement.PayoutCorrection(settlement.OrderInput{
			OrderID:  o.ID,
			IsUrgent: o.IsUrgent,
			Pricing:  o.Pricing,
		}, rate, d.ReportedCount, *cmd.AcceptedCount)
	default:
		return nil
	}
	d.AcceptedCount = cmd.AcceptedCount
	d.DeductionAmount = &amount
	if amount == 0 {
		return nil
	}

	reason := d.Resolution
	if reason == "" {
		reason = "dispute " + d.ID.String()
	}
	ded := &settlement.Deduction{
		ID:        types.NewID(),
		HelperID:  d.HelperID,
		Amount:    amount,
		Reason:    reason,
		DisputeID: d.ID.Ptr(),
		CreatedBy: cmd.AdminID,
		CreatedAt: d.UpdatedAt,
	}
	if err := s.deductions.CreateDeduction(ctx, tx, ded); err != nil {
		return err
	}
	d.DeductionID = ded.ID.Ptr()
	return nil
}
