package register

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/payment"
)

type ProductSource interface {
	ListProducts(ctx context.Context, search string) ([]catalog.Product, error)
}

type MethodSource interface {
	ListPaymentMethods(ctx context.Context) ([]catalog.PaymentMethod, error)
}

type Submitter interface {
	Submit(ctx context.Context, src checkout.CartSource, d checkout.Draft, methods checkout.MethodResolver) (checkout.Receipt, error)
}

type Deps struct {
	Products  ProductSource
	Methods   MethodSource
	Checkout  Submitter
	Publisher events.Publisher
	Logger    *zap.Logger

	// DefaultMethod is preselected for new drafts when the catalog has it.
	DefaultMethod string
	IdleTTL       time.Duration

	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) load(ctx context.Context) ([]catalog.Product, []catalog.PaymentMethod, error) {
	var products []catalog.Product
	var methods []catalog.PaymentMethod

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = d.Products.ListProducts(gctx, "")
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		methods, err = d.Methods.ListPaymentMethods(gctx)
		if err != nil {
			return fmt.Errorf("load payment methods: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return products, methods, nil
}

// Registry tracks open register sessions in memory.
type Registry struct {
	deps *Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	return &Registry{
		deps:     &deps,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session with a fresh catalog and payment methods.
func (r *Registry) Open(ctx context.Context) (*Session, error) {
	products, methods, err := r.deps.load(ctx)
	if err != nil {
		return nil, err
	}

	snap := catalog.NewSnapshot(products)
	def := pickDefaultMethod(methods, r.deps.DefaultMethod)
	id := uuid.NewString()

	s := &Session{
		id:            id,
		deps:          r.deps,
		store:         cart.NewStore(id, snap),
		products:      snap,
		resolver:      payment.NewResolver(methods),
		draft:         checkout.NewDraft(def),
		defaultMethod: def,
		lastActive:    r.deps.now(),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.deps.Logger.Info("session opened",
		zap.String("session_id", id),
		zap.Int("products", snap.Len()),
		zap.Int("payment_methods", len(methods)))
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close drops a session. A session with a checkout in flight cannot be
// closed.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if _, submitting := s.idleSince(r.deps.now()); submitting {
		return ErrCheckoutInProgress
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than IdleTTL and returns how many it
// dropped. Sessions with a checkout in flight are kept.
func (r *Registry) Sweep() int {
	if r.deps.IdleTTL <= 0 {
		return 0
	}
	now := r.deps.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		idle, submitting := s.idleSince(now)
		if submitting || idle < r.deps.IdleTTL {
			continue
		}
		delete(r.sessions, id)
		n++
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.deps.Logger.Info("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}
