package catalog

import (
	"strings"
)

// Snapshot is an immutable, id-indexed copy of the product list fetched at
// session start (or on refresh). Listing order follows the backend.
type Snapshot struct {
	products []Product
	byID     map[int64]int
}

func NewSnapshot(products []Product) *Snapshot {
	s := &Snapshot{
		products: make([]Product, len(products)),
		byID:     make(map[int64]int, len(products)),
	}
	copy(s.products, products)
	for i, p := range s.products {
		s.byID[p.ID] = i
	}
	return s
}

func (s *Snapshot) Product(id int64) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

func (s *Snapshot) All() []Product {
	if s == nil {
		return nil
	}
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Search matches term case-insensitively against name or SKU.
// An empty term returns every product.
func (s *Snapshot) Search(term string) []Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return s.All()
	}
	var out []Product
	for _, p := range s.All() {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.SKU), term) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Snapshot) LowStock() []Product {
	var out []Product
	for _, p := range s.All() {
		if p.LowStock() {
			out = append(out, p)
		}
	}
	return out
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.products)
}
