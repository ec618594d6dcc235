package order

import (
	"fmt"

	"helperhub/internal/apperr"
	"helperhub/internal/types"
)

var (
	ErrNotFound        = apperr.NotFound("order_not_found", "order not found")
	ErrActorNotAllowed = apperr.Authorization("actor_not_allowed", "actor may not perform this transition")
	ErrNotAssigned     = apperr.Authorization("not_assigned_helper", "helper is not assigned to this order")
	ErrBadRequest      = apperr.Validation("bad_request", "bad request")
	ErrClosingNotFound = apperr.NotFound("closing_report_not_found", "closing report not found")
	ErrClosingExists   = apperr.Conflict("closing_report_exists", "closing report already submitted")
)

// IllegalTransitionError is returned when the edge is not in the table, or
// when the stored status moved away from the expected source (Stale).
type IllegalTransitionError struct {
	OrderID types.ID
	From    Status
	To      Status
	Actor   Actor
	Stale   bool
}

func (e *IllegalTransitionError) Error() string {
	if e.Stale {
		return fmt.Sprintf("order %s: status is no longer %s, cannot move to %s", e.OrderID, e.From, e.To)
	}
	return fmt.Sprintf("order %s: illegal transition %s -> %s", e.OrderID, e.From, e.To)
}

func (e *IllegalTransitionError) ErrorKind() apperr.Kind { return apperr.KindConflict }

func (e *IllegalTransitionError) ErrorCode() string {
	if e.Stale {
		return "stale_order_status"
	}
	return "illegal_transition"
}
