package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrOutOfStock = errors.New("product is out of stock")

// InsufficientStockError is returned when a quantity change would exceed the
// product's stock snapshot. Available is that snapshot.
type InsufficientStockError struct {
	ProductID int64
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: only %d available", e.ProductID, e.Available)
}

type Line struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
