// README: Compare-and-set transition shared by every module that moves an order.
package order

import (
	"context"
	"time"

	"helperhub/internal/infra"
	"helperhub/internal/types"
)

// StatusRepository is the slice of the order store a transition needs.
// Callers pass the transaction they are already in as q.
type StatusRepository interface {
	Get(ctx context.Context, q infra.DBTX, id types.ID) (*Order, error)
	CompareAndSetStatus(ctx context.Context, q infra.DBTX, c StatusChange) (*Order, bool, error)
	AppendEvent(ctx context.Context, q infra.DBTX, e *Event) error
}

// StatusChange succeeds only while the row still holds From at Version.
type StatusChange struct {
	OrderID         types.ID
	From            Status
	Version         int
	To              Status
	MatchedHelperID *types.ID
}

type TransitionRequest struct {
	To              Status
	Actor           Actor
	ActorID         *types.ID
	MatchedHelperID *types.ID
	Reason          string
}

// Transition moves o to req.To using o.Status and o.StatusVersion as the
// expected source. It returns the stored order after the update, or an
// *IllegalTransitionError; it never reports success without a row change.
func Transition(ctx context.Context, q infra.DBTX, repo StatusRepository, o *Order, req TransitionRequest) (*Order, error) {
	if !CanTransition(o.Status, req.To) {
		return nil, &IllegalTransitionError{OrderID: o.ID, From: o.Status, To: req.To, Actor: req.Actor}
	}
	if !ActorAllowed(o.Status, req.To, req.Actor) {
		return nil, ErrActorNotAllowed
	}

	updated, ok, err := repo.CompareAndSetStatus(ctx, q, StatusChange{
		OrderID:         o.ID,
		From:            o.Status,
		Version:         o.StatusVersion,
		To:              req.To,
		MatchedHelperID: req.MatchedHelperID,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &IllegalTransitionError{OrderID: o.ID, From: o.Status, To: req.To, Actor: req.Actor, Stale: true}
	}

	if err := repo.AppendEvent(ctx, q, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   req.To,
		Version:    updated.StatusVersion,
		Actor:      req.Actor,
		ActorID:    req.ActorID,
		Reason:     req.Reason,
		CreatedAt:  time.Now(),
	}); err != nil {
		return nil, err
	}
	return updated, nil
}
