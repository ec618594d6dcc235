package dispute

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/infra/infratest"
	"helperhub/internal/modules/commission"
	"helperhub/internal/modules/order"
	"helperhub/internal/modules/order/ordertest"
	"helperhub/internal/modules/pricing"
	"helperhub/internal/modules/settlement"
	"helperhub/internal/types"
)

type memRepo struct {
	mu       sync.Mutex
	items    map[types.ID]Dispute
	beforeCS func(id types.ID)
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[types.ID]Dispute{}}
}

func (m *memRepo) Create(ctx context.Context, q infra.DBTX, d *Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[d.ID] = *d
	return nil
}

func (m *memRepo) Get(ctx context.Context, q infra.DBTX, id types.ID) (*Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *memRepo) CompareAndSetStatus(ctx context.Context, q infra.DBTX, from Status, d *Dispute) (bool, error) {
	if m.beforeCS != nil {
		m.beforeCS(d.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[d.ID].Status != from {
		return false, nil
	}
	m.items[d.ID] = *d
	return true, nil
}

func (m *memRepo) setStatus(id types.ID, s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.items[id]
	d.Status = s
	m.items[id] = d
}

type memDeductions struct {
	items []settlement.Deduction
	err   error
}

func (m *memDeductions) CreateDeduction(ctx context.Context, q infra.DBTX, d *settlement.Deduction) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, *d)
	return nil
}

type memTeams struct {
	team *commission.Team
}

func (m memTeams) ActiveTeamFor(ctx context.Context, q infra.DBTX, helperID types.ID) (*commission.Team, error) {
	return m.team, nil
}

var fixtureSnapshot = pricing.Snapshot{
	BasePricePerBox:      1200,
	UrgentSurchargeRate:  15,
	CommissionRate:       12,
	UrgentCommissionRate: 15,
}

const (
	helperID    types.ID = "helper-1"
	requesterID types.ID = "requester-1"
	orderID     types.ID = "order-1"
)

type fixture struct {
	svc        *Service
	pool       *infratest.Pool
	repo       *memRepo
	orders     *ordertest.MemStore
	deductions *memDeductions
	teams      *memTeams
}

func newFixture(t *testing.T, status order.Status) *fixture {
	t.Helper()
	orders := ordertest.NewMemStore(order.Order{
		ID:              orderID,
		RequesterID:     requesterID,
		Status:          status,
		MatchedHelperID: helperID.Ptr(),
		Quantity:        100,
		PricePerUnit:    1200,
		Pricing:         fixtureSnapshot,
	})
	if status.Completed() {
		require.NoError(t, orders.InsertClosingReport(context.Background(), nil, &order.ClosingReport{
			ID: "report-1", OrderID: orderID, HelperID: helperID, DeliveredCount: 100, SubmittedAt: time.Now(),
		}))
	}
	f := &fixture{
		pool:       &infratest.Pool{},
		repo:       newMemRepo(),
		orders:     orders,
		deductions: &memDeductions{},
		teams:      &memTeams{},
	}
	f.svc = NewService(f.pool, f.repo, orders, f.deductions, f.teams, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *fixture) file(t *testing.T) *Dispute {
	t.Helper()
	d, err := f.svc.File(context.Background(), FileCommand{
		OrderID: orderID, FiledBy: requesterID, Role: order.ActorRequester, DisputeType: "count_mismatch",
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) review(t *testing.T, id types.ID) {
	t.Helper()
	_, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{DisputeID: id, Status: StatusReviewing, AdminID: "admin-1"})
	require.NoError(t, err)
}

func intPtr(v int) *int { return &v }

func TestFile(t *testing.T) {
	f := newFixture(t, order.StatusClosingSubmitted)
	d := f.file(t)
	require.Equal(t, StatusPending, d.Status)
	require.Equal(t, 100, d.ReportedCount)
	require.Equal(t, helperID, d.HelperID)

	_, err := f.svc.File(context.Background(), FileCommand{
		OrderID: orderID, FiledBy: "someone-else", Role: order.ActorHelper, DisputeType: "count_mismatch",
	})
	require.ErrorIs(t, err, ErrNotParty)
	require.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestFile_RequiresCompletedOrder(t *testing.T) {
	f := newFixture(t, order.StatusInProgress)
	_, err := f.svc.File(context.Background(), FileCommand{
		OrderID: orderID, FiledBy: helperID, Role: order.ActorHelper, DisputeType: "count_mismatch",
	})
	require.ErrorIs(t, err, ErrOrderNotComplete)
}

func TestUpdateStatus_ResolveCreatesDeduction(t *testing.T) {
	f := newFixture(t, order.StatusClosingSubmitted)
	d := f.file(t)
	f.review(t, d.ID)

	got, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{
		DisputeID: d.ID, Status: StatusResolved, AdminID: "admin-1",
		Resolution: "3 boxes missing", AcceptedCount: intPtr(97),
	})
	require.NoError(t, err)
	require.Equal(t, StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	require.Equal(t, int64(3485), *got.DeductionAmount)

	require.Len(t, f.deductions.items, 1)
	ded := f.deductions.items[0]
	require.Equal(t, int64(3485), ded.Amount)
	require.Equal(t, helperID, ded.HelperID)
	require.Equal(t, d.ID, *ded.DisputeID)
	require.Equal(t, ded.ID, *got.DeductionID)
}

func TestUpdateStatus_Amounts(t *testing.T) {
	tests := []struct {
		name     string
		accepted *int
		explicit *int64
		want     int
	}{
		{name: "credit when more accepted", accepted: intPtr(102), want: 1},
		{name: "equal counts records nothing", accepted: intPtr(100), want: 0},
		{name: "no amount records nothing", want: 0},
		{name: "explicit amount wins", accepted: intPtr(50), explicit: func() *int64 { v := int64(500); return &v }(), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, order.StatusSettlementPaid)
			d := f.file(t)
			f.review(t, d.ID)
			_, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{
				DisputeID: d.ID, Status: StatusResolved, AcceptedCount: tt.accepted, DeductionAmount: tt.explicit,
			})
			require.NoError(t, err)
			require.Len(t, f.deductions.items, tt.want)
			if tt.explicit != nil {
				require.Equal(t, *tt.explicit, f.deductions.items[0].Amount)
			}
			if tt.name == "credit when more accepted" {
				require.Equal(t, int64(-2323), f.deductions.items[0].Amount)
			}
		})
	}
}

func TestUpdateStatus_TerminalIsImmutable(t *testing.T) {
	f := newFixture(t, order.StatusClosingSubmitted)
	d := f.file(t)
	f.review(t, d.ID)
	first, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{DisputeID: d.ID, Status: StatusRejected, Resolution: "no evidence"})
	require.NoError(t, err)

	for _, to := range []Status{StatusResolved, StatusReviewing, StatusRejected} {
		_, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{DisputeID: d.ID, Status: to, Resolution: "changed"})
		var terr *TerminalError
		require.True(t, errors.As(err, &terr), "to=%s", to)
		require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	stored, err := f.svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, "no evidence", stored.Resolution)
	require.Equal(t, first.ResolvedAt, stored.ResolvedAt)
}

func TestUpdateStatus_IllegalEdge(t *testing.T) {
	f := newFixture(t, order.StatusClosingSubmitted)
	d := f.file(t)
	_, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{DisputeID: d.ID, Status: StatusResolved})
	var ierr *IllegalTransitionError
	require.ErrorAs(t, err, &ierr)
	require.Equal(t, StatusPending, ierr.From)

	_, err = f.svc.UpdateStatus(context.Background(), UpdateCommand{DisputeID: d.ID, Status: "archived"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateStatus_LostRaceReportsTerminal(t *testing.T) {
	f := newFixture(t, order.StatusClosingSubmitted)
	d := f.file(t)
	f.review(t, d.ID)
	f.repo.beforeCS = func(id types.ID) { f.repo.setStatus(id, StatusRejected) }

	_, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{
		DisputeID: d.ID, Status: StatusResolved, AcceptedCount: intPtr(90),
	})
	var terr *TerminalError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, StatusRejected, terr.Status)
	_, _, rollbacks := f.pool.Counts()
	require.GreaterOrEqual(t, rollbacks, 1)
}

func TestUpdateStatus_DeductionFailureAborts(t *testing.T) {
	f := newFixture(t, order.StatusClosingSubmitted)
	d := f.file(t)
	f.review(t, d.ID)
	f.deductions.err = errors.New("boom")

	_, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{
		DisputeID: d.ID, Status: StatusResolved, AcceptedCount: intPtr(90),
	})
	require.Error(t, err)
	stored, err := f.svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReviewing, stored.Status)
}

func TestUpdateStatus_CorrectionMatchesStatementPayout(t *testing.T) {
	minimum := fixtureSnapshot
	minimum.MinTotal = 300000

	tests := []struct {
		name     string
		snapshot pricing.Snapshot
		team     *commission.Team
		urgent   bool
		accepted int
	}{
		{name: "minimum guarantee lifts the unit price", snapshot: minimum, accepted: 90},
		{name: "team carve-out", snapshot: fixtureSnapshot, team: &commission.Team{CommissionRate: 5}, accepted: 80},
		{name: "urgent order", snapshot: fixtureSnapshot, urgent: true, accepted: 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, order.StatusClosed)
			o, err := f.orders.Get(context.Background(), nil, orderID)
			require.NoError(t, err)
			o.Pricing = tt.snapshot
			o.IsUrgent = tt.urgent
			f.orders.Put(*o)
			f.teams.team = tt.team

			d := f.file(t)
			f.review(t, d.ID)
			got, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{
				DisputeID: d.ID, Status: StatusResolved, AcceptedCount: intPtr(tt.accepted),
			})
			require.NoError(t, err)

			rate := settlement.TeamRate{}
			if tt.team != nil {
				rate = settlement.TeamRate{HasTeam: true, Rate: tt.team.CommissionRate}
			}
			statement := func(delivered int) int64 {
				return settlement.BuildStatement(helperID, "2026-03", []settlement.OrderInput{
					{OrderID: orderID, DeliveredCount: delivered, IsUrgent: tt.urgent, Pricing: tt.snapshot},
				}, rate, nil).NetPayout
			}
			require.Equal(t, statement(100)-statement(tt.accepted), *got.DeductionAmount)
		})
	}
}

func TestUpdateStatus_MinimumGuaranteeCorrection(t *testing.T) {
	f := newFixture(t, order.StatusClosed)
	o, err := f.orders.Get(context.Background(), nil, orderID)
	require.NoError(t, err)
	o.Pricing.MinTotal = 300000
	f.orders.Put(*o)

	d := f.file(t)
	f.review(t, d.ID)
	got, err := f.svc.UpdateStatus(context.Background(), UpdateCommand{
		DisputeID: d.ID, Status: StatusResolved, AcceptedCount: intPtr(90),
	})
	require.NoError(t, err)
	// 100 boxes pay 290400 at 3000 per box; 90 boxes pay 290458 at 3334.
	require.Equal(t, int64(-58), *got.DeductionAmount)
	require.Equal(t, int64(-58), f.deductions.items[0].Amount)
}
