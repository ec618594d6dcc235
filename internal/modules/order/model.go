// README: Order aggregate, status and actor definitions, and the transition table.
package order

import (
	"time"

	"helperhub/internal/modules/pricing"
	"helperhub/internal/types"
)

type Status string

const (
	StatusNone             Status = "none"
	StatusOpen             Status = "open"
	StatusMatching         Status = "matching"
	StatusScheduled        Status = "scheduled"
	StatusInProgress       Status = "in_progress"
	StatusClosingSubmitted Status = "closing_submitted"
	StatusBalancePaid      Status = "balance_paid"
	StatusSettlementPaid   Status = "settlement_paid"
	StatusClosed           Status = "closed"
	StatusCancelled        Status = "cancelled"
)

// Statuses lists every real state in lifecycle order.
var Statuses = []Status{
	StatusOpen, StatusMatching, StatusScheduled, StatusInProgress, StatusClosingSubmitted,
	StatusBalancePaid, StatusSettlementPaid, StatusClosed, StatusCancelled,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Assignable orders are the only ones a helper can be bound to and check in to.
func (s Status) Assignable() bool {
	return s == StatusOpen || s == StatusScheduled
}

// Completed orders have a closing report and can be disputed or settled.
func (s Status) Completed() bool {
	switch s {
	case StatusClosingSubmitted, StatusBalancePaid, StatusSettlementPaid, StatusClosed:
		return true
	}
	return false
}

type Actor string

const (
	ActorHelper    Actor = "helper"
	ActorRequester Actor = "requester"
	ActorAdmin     Actor = "admin"
	ActorSystem    Actor = "system"
)

func (a Actor) Valid() bool {
	switch a {
	case ActorHelper, ActorRequester, ActorAdmin, ActorSystem:
		return true
	}
	return false
}

type Order struct {
	ID              types.ID         `json:"id"`
	RequesterID     types.ID         `json:"requesterId"`
	Status          Status           `json:"status"`
	StatusVersion   int              `json:"statusVersion"`
	MatchedHelperID *types.ID        `json:"matchedHelperId,omitempty"`
	CompanyName     string           `json:"companyName"`
	Category        string           `json:"category"`
	Quantity        int              `json:"quantity"`
	PricePerUnit    int64            `json:"pricePerUnit"`
	IsUrgent        bool             `json:"isUrgent"`
	ScheduledDate   time.Time        `json:"scheduledDate"`
	EndDate         *time.Time       `json:"endDate,omitempty"`
	Pricing         pricing.Snapshot `json:"pricing"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (o *Order) MatchedTo(helperID types.ID) bool {
	return o.MatchedHelperID != nil && *o.MatchedHelperID == helperID
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	Version    int
	Actor      Actor
	ActorID    *types.ID
	Reason     string
	CreatedAt  time.Time
}

type ClosingReport struct {
	ID             types.ID  `json:"id"`
	OrderID        types.ID  `json:"orderId"`
	HelperID       types.ID  `json:"helperId"`
	DeliveredCount int       `json:"deliveredCount"`
	Memo           string    `json:"memo,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// AllowedTransitions is the order state flow as code. Every non-terminal
// state may also be cancelled.
var AllowedTransitions = map[Status][]Status{
	StatusOpen:             {StatusMatching, StatusScheduled, StatusInProgress, StatusCancelled},
	StatusMatching:         {StatusScheduled, StatusCancelled},
	StatusScheduled:        {StatusInProgress, StatusMatching, StatusCancelled},
	StatusInProgress:       {StatusClosingSubmitted, StatusCancelled},
	StatusClosingSubmitted: {StatusBalancePaid, StatusCancelled},
	StatusBalancePaid:      {StatusSettlementPaid, StatusCancelled},
	StatusSettlementPaid:   {StatusClosed, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextStates returns a copy of the legal targets from s.
func NextStates(s Status) []Status {
	return append([]Status(nil), AllowedTransitions[s]...)
}

// ActorsFor returns who may fire a legal edge; nil for an illegal one.
func ActorsFor(from, to Status) []Actor {
	if !CanTransition(from, to) {
		return nil
	}
	switch {
	case to == StatusCancelled:
		return []Actor{ActorAdmin}
	case to == StatusMatching:
		return []Actor{ActorSystem, ActorRequester, ActorAdmin}
	case to == StatusScheduled:
		return []Actor{ActorRequester, ActorAdmin}
	case to == StatusInProgress, to == StatusClosingSubmitted:
		return []Actor{ActorHelper}
	case to == StatusBalancePaid, to == StatusSettlementPaid:
		return []Actor{ActorSystem, ActorAdmin}
	case to == StatusClosed:
		return []Actor{ActorAdmin, ActorSystem}
	}
	return nil
}

func ActorAllowed(from, to Status, actor Actor) bool {
	for _, a := range ActorsFor(from, to) {
		if a == actor {
			return true
		}
	}
	return false
}
