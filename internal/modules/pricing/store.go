// README: CourierSetting persistence backed by PostgreSQL.
package pricing

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"helperhub/internal/infra"
	"helperhub/internal/types"
)

var ErrSettingNotFound = errors.New("courier setting not found")

var ErrDuplicateSetting = errors.New("courier setting already exists for company and category")

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

const settingColumns = `id, company_name, category, base_price_per_box, min_total,
	commission_rate, urgent_commission_rate, urgent_surcharge_rate, created_at, updated_at`

func scanSetting(row pgx.Row) (*CourierSetting, error) {
	var cs CourierSetting
	err := row.Scan(&cs.ID, &cs.CompanyName, &cs.Category, &cs.BasePricePerBox, &cs.MinTotal,
		&cs.CommissionRate, &cs.UrgentCommissionRate, &cs.UrgentSurchargeRate, &cs.CreatedAt, &cs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan courier setting")
	}
	return &cs, nil
}

// Lookup prefers the exact (company, category) row and falls back to the
// company-wide row whose category is empty.
func (s *Store) Lookup(ctx context.Context, q infra.DBTX, company, category string) (*CourierSetting, error) {
	return scanSetting(q.QueryRow(ctx, `
		SELECT `+settingColumns+`
		FROM courier_settings
		WHERE company_name = $1 AND category IN ($2, '')
		ORDER BY (category = $2) DESC
		LIMIT 1`, company, category))
}

func (s *Store) Get(ctx context.Context, q infra.DBTX, id types.ID) (*CourierSetting, error) {
	return scanSetting(q.QueryRow(ctx, `SELECT `+settingColumns+` FROM courier_settings WHERE id = $1`, string(id)))
}

func (s *Store) List(ctx context.Context, q infra.DBTX) ([]CourierSetting, error) {
	rows, err := q.Query(ctx, `SELECT `+settingColumns+` FROM courier_settings ORDER BY company_name, category`)
	if err != nil {
		return nil, errors.Wrap(err, "list courier settings")
	}
	defer rows.Close()
	var out []CourierSetting
	for rows.Next() {
		cs, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cs)
	}
	return out, errors.Wrap(rows.Err(), "iterate courier settings")
}

func (s *Store) Create(ctx context.Context, q infra.DBTX, cs *CourierSetting) error {
	_, err := q.Exec(ctx, `
		INSERT INTO courier_settings (
			id, company_name, category, base_price_per_box, min_total,
			commission_rate, urgent_commission_rate, urgent_surcharge_rate, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(cs.ID), cs.CompanyName, cs.Category, cs.BasePricePerBox, cs.MinTotal,
		cs.CommissionRate, cs.UrgentCommissionRate, cs.UrgentSurchargeRate, cs.CreatedAt, cs.UpdatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrDuplicateSetting
	}
	return errors.Wrap(err, "insert courier setting")
}

func (s *Store) Update(ctx context.Context, q infra.DBTX, cs *CourierSetting) error {
	tag, err := q.Exec(ctx, `
		UPDATE courier_settings
		SET company_name = $2, category = $3, base_price_per_box = $4, min_total = $5,
		    commission_rate = $6, urgent_commission_rate = $7, urgent_surcharge_rate = $8, updated_at = $9
		WHERE id = $1`,
		string(cs.ID), cs.CompanyName, cs.Category, cs.BasePricePerBox, cs.MinTotal,
		cs.CommissionRate, cs.UrgentCommissionRate, cs.UrgentSurchargeRate, cs.UpdatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrDuplicateSetting
	}
	if err != nil {
		return errors.Wrap(err, "update courier setting")
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, q infra.DBTX, id types.ID) error {
	tag, err := q.Exec(ctx, `DELETE FROM courier_settings WHERE id = $1`, string(id))
	if err != nil {
		return errors.Wrap(err, "delete courier setting")
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingNotFound
	}
	return nil
}
