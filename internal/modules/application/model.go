// README: Order application (competitive assignment path) and its status flow.
package application

import (
	"time"

	"helperhub/internal/types"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusSelected   Status = "selected"
	StatusInProgress Status = "in_progress"
	StatusRejected   Status = "rejected"
)

type Application struct {
	ID          types.ID   `json:"id"`
	OrderID     types.ID   `json:"orderId"`
	HelperID    types.ID   `json:"helperId"`
	Status      Status     `json:"status"`
	CheckedInAt *time.Time `json:"checkedInAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Active applications bind their helper to the order.
func (a Application) Active() bool {
	return a.Status == StatusApproved || a.Status == StatusSelected
}

var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusSelected, StatusRejected},
	StatusApproved: {StatusInProgress, StatusRejected},
	StatusSelected: {StatusInProgress, StatusRejected},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionSelect  Decision = "select"
	DecisionReject  Decision = "reject"
)

func (d Decision) Target() (Status, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionSelect:
		return StatusSelected, true
	case DecisionReject:
		return StatusRejected, true
	}
	return "", false
}
