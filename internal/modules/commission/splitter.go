// README: Platform/team/helper split of a contract total. Pure; never returns a negative payout.
package commission

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

type Input struct {
	Total int64
	// Rates are percentages in [0,100].
	PlatformRate float64
	TeamRate     float64
	HasTeam      bool
	Deductions   int64
}

type Split struct {
	Total                 int64    `json:"total"`
	PlatformGross         int64    `json:"platformGrossCommission"`
	TeamCommission        int64    `json:"teamCommission"`
	PlatformNetCommission int64    `json:"platformNetCommission"`
	AppliedDeductions     int64    `json:"appliedDeductions"`
	HelperPayout          int64    `json:"helperPayout"`
	Warnings              []string `json:"warnings,omitempty"`
}

// Calculate carves the team commission out of the platform commission, so
// PlatformNetCommission + TeamCommission == PlatformGross always holds, as
// does HelperPayout + PlatformGross + AppliedDeductions == Total. Deductions
// beyond what the payout can absorb are not applied.
func Calculate(in Input) Split {
	var warn []string

	total := in.Total
	if total < 0 {
		warn = append(warn, fmt.Sprintf("negative total %d treated as 0", total))
		total = 0
	}
	platformRate, w := clampPercent("platform", in.PlatformRate)
	warn = append(warn, w...)

	teamRate := 0.0
	if in.HasTeam {
		teamRate, w = clampPercent("team", in.TeamRate)
		warn = append(warn, w...)
		if teamRate > platformRate {
			warn = append(warn, fmt.Sprintf("team rate %v exceeds platform rate %v, capped", teamRate, platformRate))
			teamRate = platformRate
		}
	}

	gross := percentOf(total, platformRate)
	team := percentOf(total, teamRate)
	if team > gross {
		team = gross
	}

	out := Split{
		Total:                 total,
		PlatformGross:         gross,
		TeamCommission:        team,
		PlatformNetCommission: gross - team,
		AppliedDeductions:     in.Deductions,
	}

	payout := total - gross - in.Deductions
	if payout < 0 {
		warn = append(warn, fmt.Sprintf("payout %d below zero clamped to 0", payout))
		payout = 0
		out.AppliedDeductions = total - gross
	}
	out.HelperPayout = payout
	out.Warnings = warn
	return out
}

// percentOf rounds total*rate/100 half away from zero.
func percentOf(total int64, rate float64) int64 {
	if total == 0 || rate == 0 {
		return 0
	}
	return decimal.NewFromInt(total).
		Mul(decimal.NewFromFloat(rate)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func clampPercent(name string, r float64) (float64, []string) {
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return 0, []string{fmt.Sprintf("%s rate is not a number, treated as 0", name)}
	case r < 0:
		return 0, []string{fmt.Sprintf("%s rate %v below 0, clamped", name, r)}
	case r > 100:
		return 100, []string{fmt.Sprintf("%s rate %v above 100, clamped", name, r)}
	}
	return r, nil
}
