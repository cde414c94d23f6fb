package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/catalog"
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// Resolver answers payment questions against the active method catalog.
type Resolver struct {
	methods []catalog.PaymentMethod
}

func NewResolver(methods []catalog.PaymentMethod) *Resolver {
	cp := make([]catalog.PaymentMethod, len(methods))
	copy(cp, methods)
	return &Resolver{methods: cp}
}

func (r *Resolver) Methods() []catalog.PaymentMethod {
	out := make([]catalog.PaymentMethod, len(r.methods))
	copy(out, r.methods)
	return out
}

func (r *Resolver) SelectMethod(code string) (catalog.PaymentMethod, error) {
	for _, m := range r.methods {
		if m.Code == code {
			return m, nil
		}
	}
	return catalog.PaymentMethod{}, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, code)
}

func RequiresTenderInput(m catalog.PaymentMethod) bool {
	return m.Type == catalog.MethodCash
}

// ComputeChange returns tendered minus total for cash methods. The result is
// signed: a negative value means the customer has not paid enough. Non-cash
// methods always yield zero.
func ComputeChange(m catalog.PaymentMethod, total, tendered decimal.Decimal) decimal.Decimal {
	if !RequiresTenderInput(m) {
		return decimal.Zero
	}
	return tendered.Sub(total)
}
