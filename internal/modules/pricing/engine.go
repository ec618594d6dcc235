// README: Pure per-box price calculation with urgent surcharge and minimum guarantee.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Result struct {
	FinalPricePerBox int64  `json:"finalPricePerBox"`
	MinApplied       bool   `json:"minApplied"`
	UrgentApplied    bool   `json:"urgentApplied"`
	Explanation      string `json:"explanation"`
}

// ComputePricePerBox applies the urgent surcharge first and then lifts the
// per-box price so that price*quantity reaches minTotal. A non-positive
// quantity returns the base price untouched. Inputs outside their domain are
// clamped to zero rather than rejected.
func ComputePricePerBox(basePrice int64, quantity int, minTotal int64, urgentSurchargeRate float64, isUrgent bool) Result {
	basePrice = nonNegative(basePrice)
	minTotal = nonNegative(minTotal)
	urgentSurchargeRate = clampRate(urgentSurchargeRate)

	var why []string
	why = append(why, fmt.Sprintf("base %d", basePrice))

	res := Result{FinalPricePerBox: basePrice}
	if quantity <= 0 {
		why = append(why, "no quantity, surcharge and minimum not evaluated")
		res.Explanation = strings.Join(why, "; ")
		return res
	}

	afterUrgent := basePrice
	if isUrgent && urgentSurchargeRate > 0 {
		factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(urgentSurchargeRate).Div(decimal.NewFromInt(100)))
		afterUrgent = saturate(decimal.NewFromInt(basePrice).Mul(factor).Ceil())
		res.UrgentApplied = true
		why = append(why, fmt.Sprintf("urgent +%s%% -> %d", decimal.NewFromFloat(urgentSurchargeRate).String(), afterUrgent))
	}
	res.FinalPricePerBox = afterUrgent

	q := int64(quantity)
	rawTotal := decimal.NewFromInt(afterUrgent).Mul(decimal.NewFromInt(q))
	if minTotal > 0 && rawTotal.LessThan(decimal.NewFromInt(minTotal)) {
		required := minTotal / q
		if minTotal%q != 0 {
			required++
		}
		if required > afterUrgent {
			res.FinalPricePerBox = required
		}
		res.MinApplied = true
		why = append(why, fmt.Sprintf("total %s below minimum %d, %d per box required -> %d", rawTotal.String(), minTotal, required, res.FinalPricePerBox))
	}

	res.Explanation = strings.Join(why, "; ")
	return res
}

// RoundToHundred rounds half away from zero to the nearest 100.
func RoundToHundred(v int64) int64 {
	if v < 0 {
		return -RoundToHundred(-v)
	}
	return (v + 50) / 100 * 100
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampRate(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return 0
	}
	return r
}

func saturate(d decimal.Decimal) int64 {
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return math.MaxInt64
	}
	return d.IntPart()
}
