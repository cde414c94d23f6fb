package checkout

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/guard"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/payment"
)

// OrderService finalizes a sale. It re-validates stock and prices on its side.
type OrderService interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Transaction, error)
}

// CartSource is the session cart the orchestrator reads from. The
// orchestrator never mutates it.
type CartSource interface {
	ID() string
	Snapshot() cart.Cart
}

type MethodResolver interface {
	SelectMethod(code string) (catalog.PaymentMethod, error)
}

// Guard serializes submissions per cart session.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Orchestrator struct {
	orders OrderService
	guard  Guard
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrchestrator(orders OrderService, g Guard, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		orders: orders,
		guard:  g,
		logger: logger,
		tracer: otel.Tracer("pos-register/checkout"),
	}
}

// Validate applies the pre-submission rules in order: empty cart, missing
// tender, insufficient tender. Non-cash methods skip the tender rules. The
// tender is checked as it will be sent, rounded to cents.
func Validate(d Draft, c cart.Cart, m catalog.PaymentMethod) error {
	if c.IsEmpty() {
		return ErrEmptyCart
	}
	if !payment.RequiresTenderInput(m) {
		return nil
	}
	if !d.Tendered.Valid {
		return ErrMissingPayment
	}
	tendered := roundTender(d.Tendered.Decimal)
	if !tendered.IsPositive() {
		return ErrMissingPayment
	}
	total := c.Total()
	if tendered.LessThan(total) {
		return &InsufficientPaymentError{Shortfall: total.Sub(tendered)}
	}
	return nil
}

// BuildRequest assumes d has passed Validate for m.
func BuildRequest(d Draft, c cart.Cart, m catalog.PaymentMethod) OrderRequest {
	name := strings.TrimSpace(d.CustomerName)
	if name == "" {
		name = DefaultCustomerName
	}

	amount := c.Total()
	if payment.RequiresTenderInput(m) {
		amount = roundTender(d.Tendered.Decimal)
	}

	lines := c.Lines()
	items := make([]OrderItem, 0, len(lines))
	for _, ln := range lines {
		items = append(items, OrderItem{ProductID: ln.ProductID, Quantity: ln.Quantity})
	}

	return OrderRequest{
		CustomerName:      name,
		PaymentMethodCode: m.Code,
		PaymentAmount:     amount,
		Items:             items,
	}
}

// Submit validates and sends the checkout. Local validation failures never
// reach the order service. On success the caller clears the cart; on any
// error the cart is left as it was.
func (o *Orchestrator) Submit(ctx context.Context, src CartSource, d Draft, methods MethodResolver) (Receipt, error) {
	c := src.Snapshot()
	if c.IsEmpty() {
		return Receipt{}, ErrEmptyCart
	}

	m, err := methods.SelectMethod(d.PaymentMethodCode)
	if err != nil {
		return Receipt{}, err
	}
	if err := Validate(d, c, m); err != nil {
		return Receipt{}, err
	}

	release, err := o.guard.Acquire(ctx, src.ID())
	if err != nil {
		if errors.Is(err, guard.ErrHeld) {
			return Receipt{}, ErrSubmissionInFlight
		}
		return Receipt{}, &TransientError{Err: fmt.Errorf("acquire submission guard: %w", err)}
	}
	defer release()

	req := BuildRequest(d, c, m)

	ctx, span := o.tracer.Start(ctx, "checkout.submit", trace.WithAttributes(
		attribute.String("pos.session_id", src.ID()),
		attribute.String("pos.payment_method", m.Code),
		attribute.Int("pos.items", len(req.Items)),
	))
	defer span.End()

	// Creating the order is not idempotent, so it runs to completion even if
	// the caller goes away. The upstream client timeout still bounds it.
	tx, err := o.orders.SubmitOrder(context.WithoutCancel(ctx), req)
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("checkout rejected",
			zap.String("session_id", src.ID()),
			zap.String("payment_method", m.Code),
			zap.Error(err))
		return Receipt{}, err
	}

	receipt := NewReceipt(tx)
	o.logger.Info("checkout accepted",
		zap.String("session_id", src.ID()),
		zap.String("transaction_code", receipt.TransactionCode),
		zap.String("total", receipt.Total.String()))
	return receipt, nil
}

// Change is the signed change for the draft against c. A missing tendered
// amount counts as zero.
func Change(d Draft, c cart.Cart, m catalog.PaymentMethod) decimal.Decimal {
	tendered := decimal.Zero
	if d.Tendered.Valid {
		tendered = roundTender(d.Tendered.Decimal)
	}
	return payment.ComputeChange(m, c.Total(), tendered)
}

func classify(err error) error {
	var verr *ValidationError
	var terr *TransientError
	if errors.As(err, &verr) || errors.As(err, &terr) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr) {
		return &TransientError{Err: err}
	}
	return fmt.Errorf("submit order: %w", err)
}

func roundTender(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
