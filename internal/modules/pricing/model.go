// README: Courier pricing policy and the snapshot frozen onto each order.
package pricing

import (
	"time"

	"helperhub/internal/types"
)

type CourierSetting struct {
	ID                   types.ID  `json:"id"`
	CompanyName          string    `json:"companyName"`
	Category             string    `json:"category"`
	BasePricePerBox      int64     `json:"basePricePerBox"`
	MinTotal             int64     `json:"minTotal"`
	CommissionRate       float64   `json:"commissionRate"`
	UrgentCommissionRate float64   `json:"urgentCommissionRate"`
	UrgentSurchargeRate  float64   `json:"urgentSurchargeRate"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Snapshot copies the policy an order was priced with so settlement can be
// recomputed after the setting is edited or deleted.
type Snapshot struct {
	SettingID            types.ID `json:"settingId,omitempty"`
	BasePricePerBox      int64    `json:"basePricePerBox"`
	MinTotal             int64    `json:"minTotal"`
	UrgentSurchargeRate  float64  `json:"urgentSurchargeRate"`
	CommissionRate       float64  `json:"commissionRate"`
	UrgentCommissionRate float64  `json:"urgentCommissionRate"`
}

func (s CourierSetting) Snapshot() Snapshot {
	return Snapshot{
		SettingID:            s.ID,
		BasePricePerBox:      s.BasePricePerBox,
		MinTotal:             s.MinTotal,
		UrgentSurchargeRate:  s.UrgentSurchargeRate,
		CommissionRate:       s.CommissionRate,
		UrgentCommissionRate: s.UrgentCommissionRate,
	}
}

func (s Snapshot) PricePerBox(quantity int, isUrgent bool) Result {
	return ComputePricePerBox(s.BasePricePerBox, quantity, s.MinTotal, s.UrgentSurchargeRate, isUrgent)
}

// CommissionRateFor picks the urgent rate for urgent orders.
func (s Snapshot) CommissionRateFor(isUrgent bool) float64 {
	if isUrgent {
		return s.UrgentCommissionRate
	}
	return s.CommissionRate
}

type QuoteRequest struct {
	CompanyName string
	Category    string
	Quantity    int
	IsUrgent    bool
}

type Quote struct {
	Result
	Quantity int      `json:"quantity"`
	Total    int64    `json:"total"`
	Snapshot Snapshot `json:"snapshot"`
}

type SettingInput struct {
	CompanyName          string  `json:"companyName"`
	Category             string  `json:"category"`
	BasePricePerBox      int64   `json:"basePricePerBox"`
	MinTotal             int64   `json:"minTotal"`
	CommissionRate       float64 `json:"commissionRate"`
	UrgentCommissionRate float64 `json:"urgentCommissionRate"`
	UrgentSurchargeRate  float64 `json:"urgentSurchargeRate"`
}
