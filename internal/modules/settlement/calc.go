// README: Pure statement calculation and deduction folding.
package settlement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"helperhub/internal/modules/commission"
	"helperhub/internal/types"
)

// TeamRate is the helper's team carve-out; HasTeam false means no membership.
type TeamRate struct {
	HasTeam bool
	Rate    float64
}

// BuildStatement recomputes each order from its pricing snapshot and the
// delivered count, then folds unapplied deductions. It does not set ID or
// CreatedAt.
func BuildStatement(helperID types.ID, period string, orders []OrderInput, team TeamRate, deductions []Deduction) Statement {
	st := Statement{HelperID: helperID, Period: period, OrderCount: len(orders)}

	for _, in := range orders {
		line, warnings := buildLine(in, team)
		st.Warnings = append(st.Warnings, warnings...)
		st.Lines = append(st.Lines, line)
		st.SupplyAmount += line.Supply
		st.VATAmount += line.VAT
		st.CommissionAmount += line.Commission
		st.TeamCommissionAmount += line.TeamCommission
	}
	st.TotalAmount = st.SupplyAmount + st.VATAmount
	st.PlatformNetCommission = st.CommissionAmount - st.TeamCommissionAmount

	fold := FoldDeductions(st.TotalAmount-st.CommissionAmount, deductions)
	st.DeductionAmount = fold.Sum
	st.AppliedDeductionIDs = ids(fold.Applied)
	st.DeferredDeductionIDs = ids(fold.Deferred)
	st.Warnings = append(st.Warnings, fold.Warnings...)
	st.NetPayout = st.TotalAmount - st.CommissionAmount - st.DeductionAmount
	return st
}

// buildLine prices one order at its delivered count and splits the total.
func buildLine(in OrderInput, team TeamRate) (Line, []string) {
	var warnings []string
	delivered := in.DeliveredCount
	if delivered < 0 {
		warnings = append(warnings, fmt.Sprintf("order %s: negative delivered count treated as 0", in.OrderID))
		delivered = 0
	}
	unit := in.Pricing.PricePerBox(delivered, in.IsUrgent).FinalPricePerBox
	supply := unit * int64(delivered)
	vat := vatOf(supply)
	rate := in.Pricing.CommissionRateFor(in.IsUrgent)
	split := commission.Calculate(commission.Input{
		Total:        supply + vat,
		PlatformRate: rate,
		TeamRate:     team.Rate,
		HasTeam:      team.HasTeam,
	})
	for _, w := range split.Warnings {
		warnings = append(warnings, fmt.Sprintf("order %s: %s", in.OrderID, w))
	}
	return Line{
		OrderID:        in.OrderID,
		DeliveredCount: delivered,
		UnitPrice:      unit,
		IsUrgent:       in.IsUrgent,
		Supply:         supply,
		VAT:            vat,
		Total:          supply + vat,
		CommissionRate: rate,
		Commission:     split.PlatformGross,
		TeamCommission: split.TeamCommission,
	}, warnings
}

// Payout is what the helper receives for the line before deductions.
func (l Line) Payout() int64 {
	return l.Total - l.Commission
}

// PayoutCorrection is the line payout at reported boxes minus the payout
// at accepted boxes, priced the same way a statement would price them.
// Positive is a debit, negative a credit.
func PayoutCorrection(in OrderInput, team TeamRate, reported, accepted int) int64 {
	in.DeliveredCount = reported
	atReported, _ := buildLine(in, team)
	in.DeliveredCount = accepted
	atAccepted, _ := buildLine(in, team)
	return atReported.Payout() - atAccepted.Payout()
}

type FoldResult struct {
	Applied  []Deduction
	Deferred []Deduction
	Sum      int64
	Warnings []string
}

// FoldDeductions applies every credit, then debits oldest first while they
// fit in available. A debit that does not fit is deferred to a later
// statement and later, smaller debits are still tried.
func FoldDeductions(available int64, deductions []Deduction) FoldResult {
	sorted := append([]Deduction(nil), deductions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var res FoldResult
	for _, d := range sorted {
		if d.Amount <= 0 {
			res.Applied = append(res.Applied, d)
			res.Sum += d.Amount
			available -= d.Amount
		}
	}
	for _, d := range sorted {
		if d.Amount <= 0 {
			continue
		}
		if d.Amount > available {
			res.Deferred = append(res.Deferred, d)
			res.Warnings = append(res.Warnings, fmt.Sprintf("deduction %s of %d deferred: only %d payable", d.ID, d.Amount, available))
			continue
		}
		res.Applied = append(res.Applied, d)
		res.Sum += d.Amount
		available -= d.Amount
	}
	return res
}

func vatOf(supply int64) int64 {
	return decimal.NewFromInt(supply).
		Mul(decimal.NewFromInt(VATRate)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func ids(ds []Deduction) []types.ID {
	if len(ds) == 0 {
		return nil
	}
	out := make([]types.ID, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}
