// README: Settlement service generates statements and records admin deductions.
package settlement

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/modules/commission"
	"helperhub/internal/types"
)

type Repository interface {
	CreateDeduction(ctx context.Context, q infra.DBTX, d *Deduction) error
	ListUnapplied(ctx context.Context, q infra.DBTX, helperID types.ID) ([]Deduction, error)
	MarkApplied(ctx context.Context, q infra.DBTX, statementID types.ID, ids []types.ID) error
	ListOrderInputs(ctx context.Context, q infra.DBTX, helperID types.ID, from, to time.Time) ([]OrderInput, error)
	InsertStatement(ctx context.Context, q infra.DBTX, st *Statement) error
}

type TeamLookup interface {
	ActiveTeamFor(ctx context.Context, q infra.DBTX, helperID types.ID) (*commission.Team, error)
}

type Service struct {
	pool   infra.Pool
	repo   Repository
	teams  TeamLookup
	logger *slog.Logger
	now    func() time.Time
}

func NewService(pool infra.Pool, repo Repository, teams TeamLookup, logger *slog.Logger) *Service {
	return &Service{pool: pool, repo: repo, teams: teams, logger: logger, now: time.Now}
}

type GenerateCommand struct {
	HelperID types.ID
	Period   string
}

type DeductionCommand struct {
	HelperID  types.ID
	Amount    int64
	Reason    string
	CreatedBy types.ID
}

// Generate builds and stores the helper's statement for a KST month,
// defaulting to the current one. The statement row and the deduction flags
// commit together.
func (s *Service) Generate(ctx context.Context, cmd GenerateCommand) (*Statement, error) {
	if cmd.HelperID == "" {
		return nil, apperr.Validation("invalid_helper", "helperId is required")
	}
	if cmd.Period == "" {
		cmd.Period = types.KSTPeriod(s.now())
	}
	from, to, err := types.KSTPeriodBounds(cmd.Period)
	if err != nil {
		return nil, ErrInvalidPeriod
	}

	var out *Statement
	err = infra.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		orders, err := s.repo.ListOrderInputs(ctx, tx, cmd.HelperID, from, to)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return ErrNoOrders
		}
		team, err := s.teams.ActiveTeamFor(ctx, tx, cmd.HelperID)
		if err != nil {
			return err
		}
		rate := TeamRate{}
		if team != nil {
			rate = TeamRate{HasTeam: true, Rate: team.CommissionRate}
		}
		deds, err := s.repo.ListUnapplied(ctx, tx, cmd.HelperID)
		if err != nil {
			return err
		}

		st := BuildStatement(cmd.HelperID, cmd.Period, orders, rate, deds)
		st.ID = types.NewID()
		st.CreatedAt = s.now()
		if err := s.repo.InsertStatement(ctx, tx, &st); err != nil {
			return err
		}
		if err := s.repo.MarkApplied(ctx, tx, st.ID, st.AppliedDeductionIDs); err != nil {
			return err
		}
		out = &st
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, w := range out.Warnings {
		s.logger.Warn("settlement warning", "helper_id", out.HelperID, "period", out.Period, "warning", w)
	}
	s.logger.Info("statement generated", "helper_id", out.HelperID, "period", out.Period, "orders", out.OrderCount, "net_payout", out.NetPayout)
	return out, nil
}

// CreateDeduction records an explicit admin deduction or credit.
func (s *Service) CreateDeduction(ctx context.Context, cmd DeductionCommand) (*Deduction, error) {
	cmd.Reason = strings.TrimSpace(cmd.Reason)
	if cmd.HelperID == "" || cmd.Amount == 0 || cmd.Reason == "" {
		return nil, apperr.Validation("invalid_deduction", "helperId, non-zero amount and reason are required")
	}
	d := &Deduction{
		ID:        types.NewID(),
		HelperID:  cmd.HelperID,
		Amount:    cmd.Amount,
		Reason:    cmd.Reason,
		CreatedBy: cmd.CreatedBy,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateDeduction(ctx, s.pool, d); err != nil {
		return nil, err
	}
	return d, nil
}
