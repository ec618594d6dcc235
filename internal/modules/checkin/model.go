// README: Check-in records, QR payloads and the duplicate check-in error.
package checkin

import (
	"fmt"
	"time"

	"helperhub/internal/apperr"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type Method string

const (
	MethodQR    Method = "qr"
	MethodCode  Method = "code"
	MethodOrder Method = "order"
)

const StatusCheckedIn = "checked_in"

// QRType is the only payload type accepted from a scanned QR code.
const QRType = "checkin"

type Record struct {
	ID          types.ID  `json:"id"`
	HelperID    types.ID  `json:"helperId"`
	RequesterID types.ID  `json:"requesterId"`
	OrderID     *types.ID `json:"orderId,omitempty"`
	Method      Method    `json:"method"`
	Status      string    `json:"status"`
	CheckInTime time.Time `json:"checkInTime"`
	// CheckInDay is the KST calendar date, stored as midnight UTC.
	CheckInDay time.Time `json:"checkInDay"`
}

type QRPayload struct {
	Type        string   `json:"type"`
	RequesterID types.ID `json:"requesterId"`
	Token       string   `json:"token"`
}

type Result struct {
	Success     bool         `json:"success"`
	CheckIn     Record       `json:"checkIn"`
	OrderStatus order.Status `json:"orderStatus"`
}

type AlreadyCheckedInError struct {
	HelperID types.ID
	Day      time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("helper %s already checked in on %s", e.HelperID, e.Day.Format("2006-01-02"))
}

func (e *AlreadyCheckedInError) ErrorKind() apperr.Kind { return apperr.KindConflict }

func (e *AlreadyCheckedInError) ErrorCode() string { return "already_checked_in" }

var (
	ErrInvalidQR      = apperr.Validation("invalid_qr_payload", "QR payload is not a check-in code")
	ErrQRTokenInvalid = apperr.Authorization("invalid_qr_token", "QR token is expired or does not match")
	ErrInvalidCode    = apperr.Validation("invalid_personal_code", "personal code must be 12 letters or digits")
	ErrCodeNotFound   = apperr.NotFound("personal_code_not_found", "personal code not found")
)
