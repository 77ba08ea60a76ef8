package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error the service reports to callers wraps one of these,
// so handlers can map them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// Error is a client-facing failure. Msg is safe to show to the caller.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func badRequest(format string, args ...any) error {
	return newError(ErrBadRequest, format, args...)
}

func forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

// Errors returned by the order and cart services.
var (
	ErrUserNotFound     = &Error{Kind: ErrBadRequest, Msg: "user not found"}
	ErrEmptyItems       = &Error{Kind: ErrBadRequest, Msg: "order must contain at least one item"}
	ErrInvalidQuantity  = &Error{Kind: ErrBadRequest, Msg: fmt.Sprintf("quantity must be between %d and %d", MinItemQuantity, MaxItemQuantity)}
	ErrInvalidStatus    = &Error{Kind: ErrBadRequest, Msg: "invalid order status"}
	ErrOrderNotFound    = &Error{Kind: ErrNotFound, Msg: "order not found"}
	ErrOrderItemMissing = &Error{Kind: ErrNotFound, Msg: "order item not found"}
	ErrOrderModified    = &Error{Kind: ErrConflict, Msg: "order was modified by another request, reload and retry"}
	ErrNotOwnOrder      = &Error{Kind: ErrForbidden, Msg: "you can only create orders for yourself"}
	ErrCartNotFound     = &Error{Kind: ErrNotFound, Msg: "cart not found"}
	ErrCartItemNotFound = &Error{Kind: ErrNotFound, Msg: "cart item not found"}
	ErrCartEmpty        = &Error{Kind: ErrBadRequest, Msg: "cart is empty"}
)

// Message returns the client-facing text of err when it is a service Error.
func Message(err error) (string, bool) {
	var se *Error
	if errors.As(err, &se) {
		return err.Error(), true
	}
	return "", false
}
