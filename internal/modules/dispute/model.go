// README: Dispute aggregate, its terminal state machine and typed errors.
package dispute

import (
	"fmt"
	"time"

	"helperhub/internal/apperr"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusReviewing Status = "reviewing"
	StatusResolved  Status = "resolved"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReviewing, StatusResolved, StatusRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusReviewing},
	StatusReviewing: {StatusResolved, StatusRejected},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Dispute struct {
	ID              types.ID    `json:"id"`
	OrderID         types.ID    `json:"orderId"`
	SettlementID    *types.ID   `json:"settlementId,omitempty"`
	HelperID        types.ID    `json:"helperId"`
	FiledBy         types.ID    `json:"filedBy"`
	FiledByRole     order.Actor `json:"filedByRole"`
	DisputeType     string      `json:"disputeType"`
	Description     string      `json:"description,omitempty"`
	Status          Status      `json:"status"`
	ReportedCount   int         `json:"reportedCount"`
	RequestedCount  *int        `json:"requestedCount,omitempty"`
	AcceptedCount   *int        `json:"acceptedCount,omitempty"`
	DeductionAmount *int64      `json:"deductionAmount,omitempty"`
	DeductionID     *types.ID   `json:"deductionId,omitempty"`
	Resolution      string      `json:"resolution,omitempty"`
	AdminReply      string      `json:"adminReply,omitempty"`
	ResolvedAt      *time.Time  `json:"resolvedAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// TerminalError rejects any write to a resolved or rejected dispute.
type TerminalError struct {
	DisputeID types.ID
	Status    Status
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("dispute %s is %s and can no longer change", e.DisputeID, e.Status)
}

func (e *TerminalError) ErrorKind() apperr.Kind { return apperr.KindConflict }

func (e *TerminalError) ErrorCode() string { return "dispute_terminal" }

type IllegalTransitionError struct {
	DisputeID types.ID
	From      Status
	To        Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("dispute %s: illegal transition %s -> %s", e.DisputeID, e.From, e.To)
}

func (e *IllegalTransitionError) ErrorKind() apperr.Kind { return apperr.KindConflict }

func (e *IllegalTransitionError) ErrorCode() string { return "illegal_dispute_transition" }

var (
	ErrNotFound           = apperr.NotFound("dispute_not_found", "dispute not found")
	ErrOrderNotComplete   = apperr.Conflict("order_not_completed", "disputes can only be filed after the closing report")
	ErrSettlementNotFound = apperr.NotFound("settlement_not_found", "settlement statement not found")
	ErrNotParty           = apperr.Authorization("not_order_party", "only the order's helper or requester can file a dispute")
)
