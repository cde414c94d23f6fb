package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is the register's read-only view of a product owned by the backend.
// Stock and price are snapshots; the backend re-validates both on checkout.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	MinStock int             `json:"min_stock"`
}

// LowStock reports whether the product is at or below its advisory threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

type MethodType string

const (
	MethodCash    MethodType = "cash"
	MethodNonCash MethodType = "non_cash"
)

type PaymentMethod struct {
	Code string     `json:"code"`
	Name string     `json:"name"`
	Type MethodType `json:"type"`
}
