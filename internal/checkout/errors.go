package checkout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRejectionMessage is used when the order service rejects a checkout
// without saying why.
const DefaultRejectionMessage = "failed to create transaction"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingPayment     = errors.New("payment amount is required")
	ErrSubmissionInFlight = errors.New("checkout submission already in flight")
)

type InsufficientPaymentError struct {
	Shortfall decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: short by %s", e.Shortfall.StringFixed(2))
}

// ValidationError is a rejection reported by the order service. Field is
// empty when the service gave only a message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return DefaultRejectionMessage
	}
	return e.Message
}

// TransientError wraps a network failure or timeout. The order may or may not
// have been created.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("order service unavailable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
