// README: Pricing service resolves courier settings and produces quotes; admin CRUD applies rounding.
package pricing

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/types"
)

type Repository interface {
	Lookup(ctx context.Context, q infra.DBTX, company, category string) (*CourierSetting, error)
	Get(ctx context.Context, q infra.DBTX, id types.ID) (*CourierSetting, error)
	List(ctx context.Context, q infra.DBTX) ([]CourierSetting, error)
	Create(ctx context.Context, q infra.DBTX, cs *CourierSetting) error
	Update(ctx context.Context, q infra.DBTX, cs *CourierSetting) error
	Delete(ctx context.Context, q infra.DBTX, id types.ID) error
}

type Service struct {
	db   infra.DBTX
	repo Repository
	now  func() time.Time
}

func NewService(db infra.DBTX, repo Repository) *Service {
	return &Service{db: db, repo: repo, now: time.Now}
}

// Quote reads the setting on every call so admin writes are visible immediately.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	return s.QuoteWith(ctx, s.db, req)
}

// QuoteWith runs the lookup on q, letting order creation quote inside its transaction.
func (s *Service) QuoteWith(ctx context.Context, q infra.DBTX, req QuoteRequest) (Quote, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.Category = strings.TrimSpace(req.Category)
	if req.CompanyName == "" {
		return Quote{}, apperr.Validation("invalid_company", "companyName is required")
	}
	if req.Quantity < 0 {
		return Quote{}, apperr.Validation("invalid_quantity", "quantity must not be negative")
	}
	cs, err := s.repo.Lookup(ctx, q, req.CompanyName, req.Category)
	if err != nil {
		return Quote{}, mapStoreError(err)
	}
	snap := cs.Snapshot()
	res := snap.PricePerBox(req.Quantity, req.IsUrgent)
	return Quote{
		Result:   res,
		Quantity: req.Quantity,
		Total:    res.FinalPricePerBox * int64(req.Quantity),
		Snapshot: snap,
	}, nil
}

func (s *Service) GetSetting(ctx context.Context, id types.ID) (*CourierSetting, error) {
	cs, err := s.repo.Get(ctx, s.db, id)
	return cs, mapStoreError(err)
}

func (s *Service) ListSettings(ctx context.Context) ([]CourierSetting, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) CreateSetting(ctx context.Context, in SettingInput) (*CourierSetting, error) {
	if err := normalizeInput(&in); err != nil {
		return nil, err
	}
	now := s.now()
	cs := &CourierSetting{ID: types.NewID(), CreatedAt: now}
	applyInput(cs, in, now)
	if err := s.repo.Create(ctx, s.db, cs); err != nil {
		return nil, mapStoreError(err)
	}
	return cs, nil
}

func (s *Service) UpdateSetting(ctx context.Context, id types.ID, in SettingInput) (*CourierSetting, error) {
	if err := normalizeInput(&in); err != nil {
		return nil, err
	}
	cs, err := s.repo.Get(ctx, s.db, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	applyInput(cs, in, s.now())
	if err := s.repo.Update(ctx, s.db, cs); err != nil {
		return nil, mapStoreError(err)
	}
	return cs, nil
}

func (s *Service) DeleteSetting(ctx context.Context, id types.ID) error {
	return mapStoreError(s.repo.Delete(ctx, s.db, id))
}

func applyInput(cs *CourierSetting, in SettingInput, now time.Time) {
	cs.CompanyName = in.CompanyName
	cs.Category = in.Category
	cs.BasePricePerBox = in.BasePricePerBox
	cs.MinTotal = in.MinTotal
	cs.CommissionRate = in.CommissionRate
	cs.UrgentCommissionRate = in.UrgentCommissionRate
	cs.UrgentSurchargeRate = in.UrgentSurchargeRate
	cs.UpdatedAt = now
}

// normalizeInput validates rates and rounds manually entered amounts to 100.
func normalizeInput(in *SettingInput) error {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Category = strings.TrimSpace(in.Category)
	if in.CompanyName == "" {
		return apperr.Validation("invalid_company", "companyName is required")
	}
	if in.BasePricePerBox < 0 || in.MinTotal < 0 {
		return apperr.Validation("invalid_amount", "amounts must not be negative")
	}
	for _, r := range []float64{in.CommissionRate, in.UrgentCommissionRate} {
		if !validRate(r) || r > 100 {
			return apperr.Validation("invalid_rate", "commission rates must be within 0..100")
		}
	}
	if !validRate(in.UrgentSurchargeRate) {
		return apperr.Validation("invalid_rate", "urgentSurchargeRate must not be negative")
	}
	in.BasePricePerBox = RoundToHundred(in.BasePricePerBox)
	in.MinTotal = RoundToHundred(in.MinTotal)
	return nil
}

func validRate(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r >= 0
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSettingNotFound):
		return apperr.Wrap(apperr.KindNotFound, "courier_setting_not_found", err)
	case errors.Is(err, ErrDuplicateSetting):
		return apperr.Wrap(apperr.KindConflict, "courier_setting_exists", err)
	default:
		return err
	}
}
