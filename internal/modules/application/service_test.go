package application

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"helperhub/internal/apperr"
	"helperhub/internal/infra/infratest"
	"helperhub/internal/modules/order"
	"helperhub/internal/modules/order/ordertest"
)

func newTestService(orders *ordertest.MemStore, repo *memRepo) *Service {
	return NewService(&infratest.Pool{}, repo, orders, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openOrder(status order.Status) order.Order {
	return order.Order{
		ID:            "o-1",
		RequesterID:   "req-1",
		Status:        status,
		CompanyName:   "CJ",
		Quantity:      10,
		ScheduledDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestApply_FirstApplicationMovesOrderToMatching(t *testing.T) {
	orders := ordertest.NewMemStore(openOrder(order.StatusOpen))
	svc := newTestService(orders, newMemRepo())
	ctx := context.Background()

	a, err := svc.Apply(ctx, ApplyCommand{OrderID: "o-1", HelperID: "h-1"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, a.Status)

	o, _ := orders.Get(ctx, nil, "o-1")
	require.Equal(t, order.StatusMatching, o.Status)

	_, err = svc.Apply(ctx, ApplyCommand{OrderID: "o-1", HelperID: "h-2"})
	require.NoError(t, err)
	o, _ = orders.Get(ctx, nil, "o-1")
	require.Equal(t, 1, o.StatusVersion)

	_, err = svc.Apply(ctx, ApplyCommand{OrderID: "o-1", HelperID: "h-1"})
	require.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestApply_ClosedOrderRejected(t *testing.T) {
	orders := ordertest.NewMemStore(openOrder(order.StatusInProgress))
	svc := newTestService(orders, newMemRepo())

	_, err := svc.Apply(context.Background(), ApplyCommand{OrderID: "o-1", HelperID: "h-1"})
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDecide_SelectSchedulesOrder(t *testing.T) {
	orders := ordertest.NewMemStore(openOrder(order.StatusMatching))
	repo := newMemRepo(Application{ID: "a-1", OrderID: "o-1", HelperID: "h-1", Status: StatusPending})
	svc := newTestService(orders, repo)
	ctx := context.Background()

	a, err := svc.Decide(ctx, DecideCommand{ApplicationID: "a-1", Decision: DecisionSelect, Actor: order.ActorRequester, ActorID: "req-1"})
	require.NoError(t, err)
	require.Equal(t, StatusSelected, a.Status)

	o, _ := orders.Get(ctx, nil, "o-1")
	require.Equal(t, order.StatusScheduled, o.Status)
}

func TestDecide_RequesterMustOwnOrder(t *testing.T) {
	orders := ordertest.NewMemStore(openOrder(order.StatusMatching))
	repo := newMemRepo(Application{ID: "a-1", OrderID: "o-1", HelperID: "h-1", Status: StatusPending})
	svc := newTestService(orders, repo)

	_, err := svc.Decide(context.Background(), DecideCommand{ApplicationID: "a-1", Decision: DecisionSelect, Actor: order.ActorRequester, ActorID: "someone"})
	require.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestDecide_RoleRules(t *testing.T) {
	require.Error(t, decisionAllowed(DecisionApprove, order.ActorRequester))
	require.Error(t, decisionAllowed(DecisionSelect, order.ActorAdmin))
	require.Error(t, decisionAllowed(DecisionReject, order.ActorHelper))
	require.NoError(t, decisionAllowed(DecisionApprove, order.ActorAdmin))
	require.NoError(t, decisionAllowed(DecisionReject, order.ActorRequester))
}

func TestDecide_RejectLeavesOrderAlone(t *testing.T) {
	orders := ordertest.NewMemStore(openOrder(order.StatusMatching))
	repo := newMemRepo(Application{ID: "a-1", OrderID: "o-1", HelperID: "h-1", Status: StatusPending})
	svc := newTestService(orders, repo)
	ctx := context.Background()

	a, err := svc.Decide(ctx, DecideCommand{ApplicationID: "a-1", Decision: DecisionReject, Actor: order.ActorAdmin, ActorID: "admin"})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, a.Status)
	o, _ := orders.Get(ctx, nil, "o-1")
	require.Equal(t, order.StatusMatching, o.Status)

	_, err = svc.Decide(ctx, DecideCommand{ApplicationID: "a-1", Decision: DecisionApprove, Actor: order.ActorAdmin, ActorID: "admin"})
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDecide_SecondApprovalConflicts(t *testing.T) {
	orders := ordertest.NewMemStore(openOrder(order.StatusMatching))
	repo := newMemRepo(
		Application{ID: "a-1", OrderID: "o-1", HelperID: "h-1", Status: StatusPending},
		Application{ID: "a-2", OrderID: "o-1", HelperID: "h-2", Status: StatusPending},
	)
	svc := newTestService(orders, repo)
	ctx := context.Background()

	_, err := svc.Decide(ctx, DecideCommand{ApplicationID: "a-1", Decision: DecisionApprove, Actor: order.ActorAdmin, ActorID: "admin"})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, DecideCommand{ApplicationID: "a-2", Decision: DecisionApprove, Actor: order.ActorAdmin, ActorID: "admin"})
	require.ErrorIs(t, err, ErrActiveExists)
}

func TestDecide_RejectingActiveApplicationReopensOrder(t *testing.T) {
	orders := ordertest.NewMemStore(openOrder(order.StatusMatching))
	repo := newMemRepo(Application{ID: "a-1", OrderID: "o-1", HelperID: "h-1", Status: StatusPending})
	svc := newTestService(orders, repo)
	ctx := context.Background()

	_, err := svc.Decide(ctx, DecideCommand{ApplicationID: "a-1", Decision: DecisionSelect, Actor: order.ActorRequester, ActorID: "req-1"})
	require.NoError(t, err)

	a, err := svc.Decide(ctx, DecideCommand{ApplicationID: "a-1", Decision: DecisionReject, Actor: order.ActorRequester, ActorID: "req-1"})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, a.Status)

	o, _ := orders.Get(ctx, nil, "o-1")
	require.Equal(t, order.StatusMatching, o.Status)
	events := orders.Events()
	require.Equal(t, order.StatusScheduled, events[len(events)-1].FromStatus)
	require.Equal(t, order.StatusMatching, events[len(events)-1].ToStatus)

	b, err := svc.Apply(ctx, ApplyCommand{OrderID: "o-1", HelperID: "h-2"})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, DecideCommand{ApplicationID: b.ID, Decision: DecisionApprove, Actor: order.ActorAdmin, ActorID: "admin"})
	require.NoError(t, err)
	o, _ = orders.Get(ctx, nil, "o-1")
	require.Equal(t, order.StatusScheduled, o.Status)
}

func TestDecide_RejectingPendingApplicationKeepsSchedule(t *testing.T) {
	orders := ordertest.NewMemStore(openOrder(order.StatusMatching))
	repo := newMemRepo(
		Application{ID: "a-1", OrderID: "o-1", HelperID: "h-1", Status: StatusPending},
		Application{ID: "a-2", OrderID: "o-1", HelperID: "h-2", Status: StatusPending},
	)
	svc := newTestService(orders, repo)
	ctx := context.Background()

	_, err := svc.Decide(ctx, DecideCommand{ApplicationID: "a-1", Decision: DecisionApprove, Actor: order.ActorAdmin, ActorID: "admin"})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, DecideCommand{ApplicationID: "a-2", Decision: DecisionReject, Actor: order.ActorAdmin, ActorID: "admin"})
	require.NoError(t, err)

	o, _ := orders.Get(ctx, nil, "o-1")
	require.Equal(t, order.StatusScheduled, o.Status)
}
