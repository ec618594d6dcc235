// README: Error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindExternalService
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExternalService:
		return "external_service"
	default:
		return "internal"
	}
}

// Error is the generic classified error. Domain packages may also define their
// own error types; anything exposing ErrorKind() is classified the same way.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorKind() Kind { return e.Kind }

// ErrorCode is the stable machine-readable code rendered to clients.
func (e *Error) ErrorCode() string { return e.Code }

type kinded interface {
	ErrorKind() Kind
}

type coded interface {
	ErrorCode() string
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func Wrap(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Msg: code, Err: err}
}

func Validation(code, msg string) *Error   { return New(KindValidation, code, msg) }
func Authorization(code, msg string) *Error { return New(KindAuthorization, code, msg) }
func NotFound(code, msg string) *Error      { return New(KindNotFound, code, msg) }
func Conflict(code, msg string) *Error      { return New(KindConflict, code, msg) }

// KindOf returns the first classification found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

// CodeOf returns the first client code found in err's chain, or "internal_error".
func CodeOf(err error) string {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return "internal_error"
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a classified error to a response code. External service
// failures are acknowledged, so they map to 200.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
