// README: Deductions and per-helper settlement statements.
package settlement

import (
	"time"

	"helperhub/internal/apperr"
	"helperhub/internal/modules/pricing"
	"helperhub/internal/types"
)

// VATRate is the value-added tax rate in percent.
const VATRate = 10

// Deduction amounts are debits when positive and credits when negative.
type Deduction struct {
	ID                types.ID  `json:"id"`
	HelperID          types.ID  `json:"helperId"`
	Amount            int64     `json:"amount"`
	Reason            string    `json:"reason"`
	DisputeID         *types.ID `json:"disputeId,omitempty"`
	SettlementApplied bool      `json:"settlementApplied"`
	StatementID       *types.ID `json:"statementId,omitempty"`
	CreatedBy         types.ID  `json:"createdBy"`
	CreatedAt         time.Time `json:"createdAt"`
}

// OrderInput is one completed order as seen by settlement.
type OrderInput struct {
	OrderID        types.ID
	DeliveredCount int
	IsUrgent       bool
	Pricing        pricing.Snapshot
}

type Line struct {
	OrderID        types.ID `json:"orderId"`
	DeliveredCount int      `json:"deliveredCount"`
	UnitPrice      int64    `json:"unitPrice"`
	IsUrgent       bool     `json:"isUrgent"`
	Supply         int64    `json:"supply"`
	VAT            int64    `json:"vat"`
	Total          int64    `json:"total"`
	CommissionRate float64  `json:"commissionRate"`
	Commission     int64    `json:"commission"`
	TeamCommission int64    `json:"teamCommission"`
}

// Statement holds total = supply + vat and
// netPayout = total - commission - deduction.
type Statement struct {
	ID                    types.ID   `json:"id"`
	HelperID              types.ID   `json:"helperId"`
	Period                string     `json:"period"`
	OrderCount            int        `json:"orderCount"`
	SupplyAmount          int64      `json:"supplyAmount"`
	VATAmount             int64      `json:"vatAmount"`
	TotalAmount           int64      `json:"totalAmount"`
	CommissionAmount      int64      `json:"commissionAmount"`
	TeamCommissionAmount  int64      `json:"teamCommissionAmount"`
	PlatformNetCommission int64      `json:"platformNetCommission"`
	DeductionAmount       int64      `json:"deductionAmount"`
	NetPayout             int64      `json:"netPayout"`
	Lines                 []Line     `json:"lines"`
	AppliedDeductionIDs   []types.ID `json:"appliedDeductionIds"`
	DeferredDeductionIDs  []types.ID `json:"deferredDeductionIds,omitempty"`
	Warnings              []string   `json:"warnings,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

var (
	ErrStatementExists = apperr.Conflict("statement_exists", "statement already generated for this helper and period")
	ErrInvalidPeriod   = apperr.Validation("invalid_period", "period must be YYYY-MM")
	ErrNoOrders        = apperr.NotFound("no_settleable_orders", "no completed orders in this period")
)
