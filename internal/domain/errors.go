package domain

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is.
var (
	ErrInvalidOrder     = errors.New("invalid_order")
	ErrDuplicateOrderID = errors.New("duplicate_order_id")
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrUnknownSymbol    = errors.New("unknown_symbol")
)

// ValidationError describes why an incoming order was rejected. It unwraps
// to ErrInvalidOrder.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidOrder
}
