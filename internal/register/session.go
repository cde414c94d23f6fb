package register

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/payment"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrCheckoutInProgress = errors.New("checkout in progress; cart is read-only")
)

// Session is one cashier terminal's cart session. Its methods are safe for
// concurrent use and serialize like UI events would.
type Session struct {
	id   string
	deps *Deps

	mu            sync.Mutex
	store         *cart.Store
	products      *catalog.Snapshot
	resolver      *payment.Resolver
	draft         checkout.Draft
	defaultMethod string
	submitting    bool
	lastActive    time.Time
}

// View is what the register screen renders for a session.
type View struct {
	SessionID      string                  `json:"sessionId"`
	Lines          []cart.Line             `json:"lines"`
	Total          decimal.Decimal         `json:"total"`
	Draft          checkout.Draft          `json:"draft"`
	PaymentMethod  *catalog.PaymentMethod  `json:"paymentMethod,omitempty"`
	RequiresTender bool                    `json:"requiresTender"`
	Change         decimal.Decimal         `json:"change"`
	Submitting     bool                    `json:"submitting"`
	PaymentMethods []catalog.PaymentMethod `json:"paymentMethods"`
}

// DraftInput updates the draft. Nil fields are left as they are.
type DraftInput struct {
	CustomerName      *string              `json:"customerName"`
	PaymentMethodCode *string              `json:"paymentMethodCode"`
	TenderedAmount    *decimal.NullDecimal `json:"tenderedAmount"`
}

func (s *Session) ID() string { return s.id }

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) Products(search string, lowStockOnly bool) []catalog.Product {
	s.mu.Lock()
	products := s.products
	s.mu.Unlock()

	if lowStockOnly {
		low := products.LowStock()
		if search == "" {
			return low
		}
		return catalog.NewSnapshot(low).Search(search)
	}
	return products.Search(search)
}

func (s *Session) AddItem(productID int64) (View, error) {
	return s.mutate(func() error {
		p, ok := s.products.Product(productID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
		}
		return s.store.AddItem(p)
	})
}

func (s *Session) UpdateQuantity(productID int64, qty int) (View, error) {
	return s.mutate(func() error {
		return s.store.UpdateQuantity(productID, qty)
	})
}

func (s *Session) RemoveItem(productID int64) (View, error) {
	return s.mutate(func() error {
		s.store.RemoveItem(productID)
		return nil
	})
}

func (s *Session) ClearCart() (View, error) {
	return s.mutate(func() error {
		s.store.Clear()
		return nil
	})
}

// SetDraft applies in. Selecting an unknown method fails and leaves the draft
// unchanged.
func (s *Session) SetDraft(in DraftInput) (View, error) {
	return s.mutate(func() error {
		next := s.draft
		if in.CustomerName != nil {
			next.CustomerName = strings.TrimSpace(*in.CustomerName)
		}
		if in.PaymentMethodCode != nil {
			if _, err := s.resolver.SelectMethod(*in.PaymentMethodCode); err != nil {
				return err
			}
			next.PaymentMethodCode = *in.PaymentMethodCode
		}
		if in.TenderedAmount != nil {
			next.Tendered = *in.TenderedAmount
		}
		s.draft = next
		return nil
	})
}

// Refresh reloads products and payment methods. Existing lines keep their
// price and are capped at the new stock.
func (s *Session) Refresh(ctx context.Context) (View, error) {
	products, methods, err := s.deps.load(ctx)
	if err != nil {
		return View{}, err
	}

	return s.mutate(func() error {
		s.products = catalog.NewSnapshot(products)
		s.resolver = payment.NewResolver(methods)
		s.store.SetProducts(s.products)
		s.defaultMethod = pickDefaultMethod(methods, s.deps.DefaultMethod)
		if _, err := s.resolver.SelectMethod(s.draft.PaymentMethodCode); err != nil {
			s.draft.PaymentMethodCode = s.defaultMethod
		}
		return nil
	})
}

// Checkout submits the current cart. While the submission is outstanding the
// cart rejects mutations and further checkouts. On success the cart is
// cleared and the draft reset; on failure both are kept for a retry.
func (s *Session) Checkout(ctx context.Context) (checkout.Receipt, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return checkout.Receipt{}, checkout.ErrSubmissionInFlight
	}
	s.submitting = true
	s.lastActive = s.deps.now()
	src := frozenCart{id: s.id, cart: s.store.Snapshot()}
	draft := s.draft
	resolver := s.resolver
	s.mu.Unlock()

	receipt, err := s.deps.Checkout.Submit(ctx, src, draft, resolver)

	s.mu.Lock()
	s.submitting = false
	if err == nil {
		s.store.Clear()
		s.draft = checkout.NewDraft(s.defaultMethod)
	}
	s.mu.Unlock()

	if err != nil {
		return checkout.Receipt{}, err
	}

	s.publish(ctx, receipt)
	return receipt, nil
}

func (s *Session) publish(ctx context.Context, receipt checkout.Receipt) {
	ev := events.BuildSaleCompletedEvent(receipt, events.EnvelopeOptions{
		SessionID:     s.id,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.deps.Publisher.PublishSaleCompleted(context.WithoutCancel(ctx), ev); err != nil {
		s.deps.Logger.Warn("publish SaleCompleted",
			zap.String("session_id", s.id),
			zap.String("transaction_code", receipt.TransactionCode),
			zap.Error(err))
	}
}

func (s *Session) mutate(fn func() error) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return View{}, ErrCheckoutInProgress
	}
	s.lastActive = s.deps.now()
	if err := fn(); err != nil {
		return View{}, err
	}
	return s.viewLocked(), nil
}

func (s *Session) viewLocked() View {
	c := s.store.Snapshot()
	v := View{
		SessionID:      s.id,
		Lines:          c.Lines(),
		Total:          c.Total(),
		Draft:          s.draft,
		Change:         decimal.Zero,
		Submitting:     s.submitting,
		PaymentMethods: s.resolver.Methods(),
	}
	if m, err := s.resolver.SelectMethod(s.draft.PaymentMethodCode); err == nil {
		v.PaymentMethod = &m
		v.RequiresTender = payment.RequiresTenderInput(m)
		v.Change = checkout.Change(s.draft, c, m)
	}
	return v
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive), s.submitting
}

// frozenCart hands the orchestrator an immutable copy of the cart.
type frozenCart struct {
	id   string
	cart cart.Cart
}

func (f frozenCart) ID() string { return f.id }
func (f frozenCart) Snapshot() cart.Cart { return f.cart }

func pickDefaultMethod(methods []catalog.PaymentMethod, preferred string) string {
	for _, m := range methods {
		if m.Code == preferred {
			return m.Code
		}
	}
	if len(methods) > 0 {
		return methods[0].Code
	}
	return ""
}
