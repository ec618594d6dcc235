package order_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"helperhub/internal/infra/infratest"
	"helperhub/internal/modules/order"
	"helperhub/internal/modules/pricing"
	"helperhub/internal/types"
)

func TestStore_CreateGetAndOutbox(t *testing.T) {
	db := infratest.Postgres(t)
	ctx := context.Background()
	snap := pricing.Snapshot{SettingID: "cs-1", BasePricePerBox: 1200, MinTotal: 300000, UrgentSurchargeRate: 20, CommissionRate: 12, UrgentCommissionRate: 15}
	svc := order.NewService(db, order.NewStore(), fakeQuoter{quote: pricing.Quote{
		Result:   pricing.Result{FinalPricePerBox: 3000, MinApplied: true},
		Snapshot: snap,
	}}, quietLogger())

	created, err := svc.Create(ctx, order.CreateCommand{
		RequesterID:   "req-1",
		CompanyName:   "CJ",
		Category:      "small",
		Quantity:      100,
		ScheduledDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusOpen, got.Status)
	require.Equal(t, snap, got.Pricing)
	require.Nil(t, got.MatchedHelperID)

	matched, err := svc.Match(ctx, order.MatchCommand{OrderID: created.ID, HelperID: "helper-1", AdminID: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, order.StatusScheduled, matched.Status)
	require.True(t, matched.MatchedTo("helper-1"))
	require.Equal(t, 1, matched.StatusVersion)

	events, err := order.NewStore().ListEvents(ctx, db, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, order.StatusScheduled, events[1].ToStatus)

	var outboxRows int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1`, string(created.ID)).Scan(&outboxRows))
	require.Equal(t, 2, outboxRows)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestStore_ConcurrentCompareAndSet(t *testing.T) {
	db := infratest.Postgres(t)
	ctx := context.Background()
	store := order.NewStore()
	o := newOrder("o-pg-race", order.StatusScheduled)
	o.MatchedHelperID = types.ID("helper-1").Ptr()
	require.NoError(t, store.Create(ctx, db, &o))
	svc := order.NewService(db, store, fakeQuoter{}, quietLogger())

	const workers = 12
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(ctx, order.TransitionCommand{
				OrderID: o.ID, To: order.StatusInProgress, Actor: order.ActorHelper, ActorID: "helper-1",
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	require.Equal(t, 1, wins)
	got, err := store.Get(ctx, db, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusInProgress, got.Status)
	require.Equal(t, o.StatusVersion+1, got.StatusVersion)
}
