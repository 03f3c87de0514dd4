package model

import "errors"

// ErrNotFound is returned by storage when a row does not exist.
var ErrNotFound = errors.New("not found")

type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindCustomerNotFound  ErrorKind = "customer_not_found"
	KindNoProductsFound   ErrorKind = "no_products_found"
	KindProductNotFound   ErrorKind = "product_not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindOrderNotFound     ErrorKind = "order_not_found"
)

// Error is the application error surfaced to callers of the order workflow.
// errors.Is matches on Kind only, so the sentinels below work against any
// message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrCustomerNotFound  = &Error{Kind: KindCustomerNotFound}
	ErrNoProductsFound   = &Error{Kind: KindNoProductsFound}
	ErrProductNotFound   = &Error{Kind: KindProductNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrOrderNotFound     = &Error{Kind: KindOrderNotFound}
)

// KindOf reports the application kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}
