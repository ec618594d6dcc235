// README: Gateway payments registered against orders and their webhook contract.
package payment

import (
	"time"

	"helperhub/internal/apperr"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type Purpose string

const (
	PurposeBalance    Purpose = "balance"
	PurposeSettlement Purpose = "settlement"
)

func (p Purpose) Valid() bool {
	return p == PurposeBalance || p == PurposeSettlement
}

// Target is the order status a paid payment of this purpose moves to.
func (p Purpose) Target() order.Status {
	if p == PurposeSettlement {
		return order.StatusSettlementPaid
	}
	return order.StatusBalancePaid
}

type Status string

const (
	StatusRegistered Status = "registered"
	StatusPaid       Status = "paid"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// Sources lists the statuses a payment may move to s from. Paid and
// cancelled are final; a failed payment may still be paid or cancelled.
func (s Status) Sources() []Status {
	switch s {
	case StatusPaid, StatusCancelled:
		return []Status{StatusRegistered, StatusFailed}
	case StatusFailed:
		return []Status{StatusRegistered}
	}
	return nil
}

type Payment struct {
	PaymentID string     `json:"paymentId"`
	OrderID   types.ID   `json:"orderId"`
	Purpose   Purpose    `json:"purpose"`
	Status    Status     `json:"status"`
	Amount    int64      `json:"amount"`
	CreatedBy types.ID   `json:"createdBy"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Webhook event types sent by the gateway.
const (
	EventPaid      = "Transaction.Paid"
	EventCancelled = "Transaction.Cancelled"
	EventFailed    = "Transaction.Failed"
)

type Webhook struct {
	Type string `json:"type"`
	Data struct {
		PaymentID string `json:"paymentId"`
	} `json:"data"`
}

// Outcome describes what a webhook delivery did.
type Outcome struct {
	PaymentID   string       `json:"paymentId"`
	Type        string       `json:"type"`
	Duplicate   bool         `json:"duplicate"`
	Stale       bool         `json:"stale"`
	OrderStatus order.Status `json:"orderStatus,omitempty"`
}

var (
	ErrNotFound         = apperr.NotFound("payment_not_found", "payment not found")
	ErrPaymentExists    = apperr.Conflict("payment_exists", "payment id already registered")
	ErrInvalidPayload   = apperr.New(apperr.KindExternalService, "invalid_webhook_payload", "webhook payload could not be parsed")
	ErrUnknownEvent     = apperr.New(apperr.KindExternalService, "unknown_webhook_event", "unsupported webhook event type")
	ErrInvalidSignature = apperr.New(apperr.KindAuthorization, "invalid_webhook_signature", "webhook signature verification failed")
)
