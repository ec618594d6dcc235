package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"helperhub/internal/modules/order"
	"helperhub/internal/modules/order/ordertest"
	"helperhub/internal/types"
)

// TestTransition_ConcurrentActorsSingleWinner races the check-in edge
// against an admin cancel and duplicate check-ins from the same snapshot.
func TestTransition_ConcurrentActorsSingleWinner(t *testing.T) {
	repo := ordertest.NewMemStore(newOrder("o-race", order.StatusScheduled))
	ctx := context.Background()
	snapshot, _ := repo.Get(ctx, nil, "o-race")

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, stale := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := *snapshot
			req := order.TransitionRequest{To: order.StatusInProgress, Actor: order.ActorHelper, ActorID: types.ID("helper-1").Ptr()}
			if i%4 == 0 {
				req = order.TransitionRequest{To: order.StatusCancelled, Actor: order.ActorAdmin}
			}
			_, err := order.Transition(ctx, nil, repo, &o, req)
			mu.Lock()
			defer mu.Unlock()
			var ite *order.IllegalTransitionError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &ite) && ite.Stale:
				stale++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if stale != workers-1 {
		t.Fatalf("expected %d stale losers, got %d", workers-1, stale)
	}
	final, _ := repo.Get(ctx, nil, "o-race")
	if final.StatusVersion != 1 {
		t.Fatalf("expected version 1, got %d", final.StatusVersion)
	}
	if n := len(repo.Events()); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
}
