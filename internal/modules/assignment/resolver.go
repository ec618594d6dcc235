// README: Resolves the single active helper/order binding from the application and direct-match paths.
package assignment

import (
	"context"
	"fmt"
	"sort"

	"helperhub/internal/apperr"
	"helperhub/internal/infra"
	"helperhub/internal/modules/application"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type Path string

const (
	PathApplication Path = "application"
	PathDirect      Path = "direct"
)

type Assignment struct {
	Order       order.Order
	Path        Path
	Application *application.Application
}

type NoActiveAssignmentError struct {
	HelperID types.ID
}

func (e *NoActiveAssignmentError) Error() string {
	return fmt.Sprintf("helper %s has no active assignment for this target", e.HelperID)
}

func (e *NoActiveAssignmentError) ErrorKind() apperr.Kind { return apperr.KindAuthorization }

func (e *NoActiveAssignmentError) ErrorCode() string { return "no_active_assignment" }

// Resolve picks one binding for helperID among candidate orders. An active
// application wins over a direct match; within a path the earliest
// scheduled order wins, then the lowest id. Orders outside open/scheduled
// are ignored.
func Resolve(helperID types.ID, apps []application.Application, orders []order.Order) (*Assignment, error) {
	candidates := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status.Assignable() {
			candidates = append(candidates, o)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].ScheduledDate.Equal(candidates[j].ScheduledDate) {
			return candidates[i].ScheduledDate.Before(candidates[j].ScheduledDate)
		}
		return candidates[i].ID < candidates[j].ID
	})

	byOrder := make(map[types.ID][]application.Application, len(apps))
	for _, a := range apps {
		if a.HelperID == helperID {
			byOrder[a.OrderID] = append(byOrder[a.OrderID], a)
		}
	}

	for _, o := range candidates {
		for _, a := range byOrder[o.ID] {
			if a.Active() {
				a := a
				return &Assignment{Order: o, Path: PathApplication, Application: &a}, nil
			}
		}
	}
	for _, o := range candidates {
		if o.MatchedTo(helperID) && len(byOrder[o.ID]) == 0 {
			return &Assignment{Order: o, Path: PathDirect}, nil
		}
	}
	return nil, &NoActiveAssignmentError{HelperID: helperID}
}

type ApplicationLister interface {
	ListByHelper(ctx context.Context, q infra.DBTX, helperID types.ID) ([]application.Application, error)
}

type OrderLister interface {
	Get(ctx context.Context, q infra.DBTX, id types.ID) (*order.Order, error)
	ListAssignableByRequester(ctx context.Context, q infra.DBTX, requesterID types.ID) ([]order.Order, error)
	ListAssignableByIDs(ctx context.Context, q infra.DBTX, ids []types.ID) ([]order.Order, error)
}

// Resolver gathers candidates from storage and delegates to Resolve. Every
// check-in path goes through it.
type Resolver struct {
	apps   ApplicationLister
	orders OrderLister
}

func NewResolver(apps ApplicationLister, orders OrderLister) *Resolver {
	return &Resolver{apps: apps, orders: orders}
}

func (r *Resolver) ForOrder(ctx context.Context, q infra.DBTX, helperID, orderID types.ID) (*Assignment, error) {
	if _, err := r.orders.Get(ctx, q, orderID); err != nil {
		return nil, err
	}
	apps, err := r.apps.ListByHelper(ctx, q, helperID)
	if err != nil {
		return nil, err
	}
	orders, err := r.orders.ListAssignableByIDs(ctx, q, []types.ID{orderID})
	if err != nil {
		return nil, err
	}
	return Resolve(helperID, apps, orders)
}

func (r *Resolver) ForRequester(ctx context.Context, q infra.DBTX, helperID, requesterID types.ID) (*Assignment, error) {
	apps, err := r.apps.ListByHelper(ctx, q, helperID)
	if err != nil {
		return nil, err
	}
	orders, err := r.orders.ListAssignableByRequester(ctx, q, requesterID)
	if err != nil {
		return nil, err
	}
	return Resolve(helperID, apps, orders)
}
