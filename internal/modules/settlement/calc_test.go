package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"helperhub/internal/modules/pricing"
	"helperhub/internal/types"
)

var snap = pricing.Snapshot{
	BasePricePerBox:      1200,
	MinTotal:             300000,
	UrgentSurchargeRate:  15,
	CommissionRate:       12,
	UrgentCommissionRate: 15,
}

var t0 = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func ded(id types.ID, amount int64, hoursAfter int) Deduction {
	return Deduction{ID: id, HelperID: "h-1", Amount: amount, CreatedAt: t0.Add(time.Duration(hoursAfter) * time.Hour)}
}

func TestBuildStatement(t *testing.T) {
	orders := []OrderInput{
		{OrderID: "o-a", DeliveredCount: 100, Pricing: snap},
		{OrderID: "o-b", DeliveredCount: 1000, IsUrgent: true, Pricing: snap},
	}
	deds := []Deduction{
		ded("d4", 100000, 4),
		ded("d2", 700000, 2),
		ded("d1", 1000000, 1),
		ded("d3", -50000, 3),
	}

	st := BuildStatement("h-1", "2026-02", orders, TeamRate{HasTeam: true, Rate: 5}, deds)

	require.Equal(t, 2, st.OrderCount)
	require.Equal(t, int64(3000), st.Lines[0].UnitPrice)
	require.Equal(t, int64(1380), st.Lines[1].UnitPrice)
	require.Equal(t, int64(1680000), st.SupplyAmount)
	require.Equal(t, int64(168000), st.VATAmount)
	require.Equal(t, int64(1848000), st.TotalAmount)
	require.Equal(t, int64(267300), st.CommissionAmount)
	require.Equal(t, int64(92400), st.TeamCommissionAmount)
	require.Equal(t, int64(174900), st.PlatformNetCommission)
	require.Equal(t, int64(1050000), st.DeductionAmount)
	require.Equal(t, int64(530700), st.NetPayout)
	require.Equal(t, []types.ID{"d3", "d1", "d4"}, st.AppliedDeductionIDs)
	require.Equal(t, []types.ID{"d2"}, st.DeferredDeductionIDs)
	require.NotEmpty(t, st.Warnings)

	require.Equal(t, st.SupplyAmount+st.VATAmount, st.TotalAmount)
	require.Equal(t, st.TotalAmount-st.CommissionAmount-st.DeductionAmount, st.NetPayout)
}

func TestBuildStatement_ReproducibleFromSnapshot(t *testing.T) {
	orders := []OrderInput{{OrderID: "o-a", DeliveredCount: 90, Pricing: snap}}
	first := BuildStatement("h-1", "2026-02", orders, TeamRate{}, nil)
	second := BuildStatement("h-1", "2026-02", orders, TeamRate{}, nil)
	require.Equal(t, first, second)
	// 90 boxes: minimum 300000 lifts unit price to ceil(300000/90) = 3334.
	require.Equal(t, int64(3334), first.Lines[0].UnitPrice)
	require.Equal(t, int64(300060), first.SupplyAmount)
	require.Equal(t, int64(30006), first.VATAmount)
}

func TestBuildStatement_NeverNegative(t *testing.T) {
	orders := []OrderInput{{OrderID: "o-a", DeliveredCount: 1, Pricing: pricing.Snapshot{BasePricePerBox: 1000, CommissionRate: 10}}}
	st := BuildStatement("h-1", "2026-02", orders, TeamRate{}, []Deduction{ded("d1", 5000, 0)})
	require.Zero(t, st.DeductionAmount)
	require.Equal(t, []types.ID{"d1"}, st.DeferredDeductionIDs)
	require.Equal(t, int64(990), st.NetPayout)
}

func TestFoldDeductions(t *testing.T) {
	tests := []struct {
		name      string
		available int64
		deds      []Deduction
		sum       int64
		applied   int
		deferred  int
	}{
		{name: "none", available: 100},
		{name: "fits", available: 100, deds: []Deduction{ded("a", 60, 0), ded("b", 40, 1)}, sum: 100, applied: 2},
		{name: "oldest first, skip oversize", available: 100, deds: []Deduction{ded("a", 80, 0), ded("b", 50, 1), ded("c", 20, 2)}, sum: 100, applied: 2, deferred: 1},
		{name: "credit enables debit", available: 10, deds: []Deduction{ded("a", 50, 0), ded("b", -40, 5)}, sum: 10, applied: 2},
		{name: "zero available", available: 0, deds: []Deduction{ded("a", 1, 0)}, deferred: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FoldDeductions(tt.available, tt.deds)
			require.Equal(t, tt.sum, got.Sum)
			require.Len(t, got.Applied, tt.applied)
			require.Len(t, got.Deferred, tt.deferred)
			require.LessOrEqual(t, got.Sum, tt.available)
		})
	}
}

func TestVATRounding(t *testing.T) {
	require.Equal(t, int64(0), vatOf(4))
	require.Equal(t, int64(1), vatOf(5))
	require.Equal(t, int64(30006), vatOf(300060))
}

func TestPayoutCorrection(t *testing.T) {
	flat := snap
	flat.MinTotal = 0

	tests := []struct {
		name     string
		snapshot pricing.Snapshot
		reported int
		accepted int
		want     int64
	}{
		{name: "fewer boxes accepted", snapshot: flat, reported: 100, accepted: 97, want: 3485},
		{name: "more boxes accepted", snapshot: flat, reported: 100, accepted: 102, want: -2323},
		{name: "same count", snapshot: flat, reported: 100, accepted: 100, want: 0},
		{name: "minimum guarantee raises unit price", snapshot: snap, reported: 100, accepted: 90, want: -58},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := OrderInput{OrderID: "o-a", Pricing: tt.snapshot}
			got := PayoutCorrection(in, TeamRate{}, tt.reported, tt.accepted)
			require.Equal(t, tt.want, got)

			at := func(delivered int) int64 {
				in.DeliveredCount = delivered
				return BuildStatement("h-1", "2026-02", []OrderInput{in}, TeamRate{}, nil).NetPayout
			}
			require.Equal(t, at(tt.reported)-at(tt.accepted), got)
		})
	}
}
