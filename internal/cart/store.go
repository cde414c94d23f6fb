package cart

import (
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/catalog"
)

// ProductLookup resolves the current stock snapshot of a product.
type ProductLookup interface {
	Product(id int64) (catalog.Product, bool)
}

// Store owns one session's cart. It is not safe for concurrent use; the
// owner serializes calls.
type Store struct {
	id       string
	products ProductLookup
	cart     Cart
}

func NewStore(id string, products ProductLookup) *Store {
	return &Store{id: id, products: products}
}

func (s *Store) ID() string { return s.id }

func (s *Store) AddItem(p catalog.Product) error {
	next, err := s.cart.Add(p)
	if err != nil {
		return err
	}
	s.cart = next
	return nil
}

// UpdateQuantity checks qty against the product's current snapshot. A product
// that has disappeared from the catalog is removed from the cart.
func (s *Store) UpdateQuantity(productID int64, qty int) error {
	p, ok := s.products.Product(productID)
	if !ok {
		s.cart = s.cart.Remove(productID)
		return nil
	}
	next, err := s.cart.SetQuantity(p, qty)
	if err != nil {
		return err
	}
	s.cart = next
	return nil
}

func (s *Store) RemoveItem(productID int64) {
	s.cart = s.cart.Remove(productID)
}

func (s *Store) Total() decimal.Decimal {
	return s.cart.Total()
}

func (s *Store) Clear() {
	s.cart = Cart{}
}

// SetProducts swaps the stock source and reconciles existing lines against it.
func (s *Store) SetProducts(products ProductLookup) {
	s.products = products
	s.cart = s.cart.Reconcile(products)
}

// Snapshot returns the current cart value. Later mutations of the store do
// not affect it.
func (s *Store) Snapshot() Cart {
	return s.cart
}
