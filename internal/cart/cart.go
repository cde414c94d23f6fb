package cart

import (
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/catalog"
)

// Cart is an immutable set of lines keyed by product id, kept in insertion
// order. Every transition returns a new Cart; on error the receiver is
// returned unchanged.
type Cart struct {
	lines []Line
}

func (c Cart) index(productID int64) int {
	for i, ln := range c.lines {
		if ln.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) cloneLines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Add puts one unit of p into the cart. A new line snapshots p.Price.
func (c Cart) Add(p catalog.Product) (Cart, error) {
	if p.Stock <= 0 {
		return c, ErrOutOfStock
	}

	i := c.index(p.ID)
	if i < 0 {
		lines := append(c.cloneLines(), Line{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  1,
		})
		return Cart{lines: lines}, nil
	}

	if c.lines[i].Quantity+1 > p.Stock {
		return c, &InsufficientStockError{ProductID: p.ID, Available: p.Stock}
	}
	lines := c.cloneLines()
	lines[i].Quantity++
	return Cart{lines: lines}, nil
}

// SetQuantity replaces the quantity of p's line. qty <= 0 removes the line.
// Setting a quantity for a product not in the cart is a no-op.
func (c Cart) SetQuantity(p catalog.Product, qty int) (Cart, error) {
	if qty <= 0 {
		return c.Remove(p.ID), nil
	}
	if qty > p.Stock {
		return c, &InsufficientStockError{ProductID: p.ID, Available: p.Stock}
	}

	i := c.index(p.ID)
	if i < 0 {
		return c, nil
	}
	lines := c.cloneLines()
	lines[i].Quantity = qty
	return Cart{lines: lines}, nil
}

func (c Cart) Remove(productID int64) Cart {
	i := c.index(productID)
	if i < 0 {
		return c
	}
	lines := make([]Line, 0, len(c.lines)-1)
	lines = append(lines, c.lines[:i]...)
	lines = append(lines, c.lines[i+1:]...)
	return Cart{lines: lines}
}

// Reconcile re-applies the stock ceiling against a fresh catalog. Lines whose
// product is gone or out of stock are dropped; the rest are capped at stock.
func (c Cart) Reconcile(products ProductLookup) Cart {
	lines := make([]Line, 0, len(c.lines))
	for _, ln := range c.lines {
		p, ok := products.Product(ln.ProductID)
		if !ok || p.Stock <= 0 {
			continue
		}
		if ln.Quantity > p.Stock {
			ln.Quantity = p.Stock
		}
		lines = append(lines, ln)
	}
	return Cart{lines: lines}
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, ln := range c.lines {
		total = total.Add(ln.Subtotal())
	}
	return total
}

func (c Cart) Lines() []Line {
	return c.cloneLines()
}

func (c Cart) Line(productID int64) (Line, bool) {
	i := c.index(productID)
	if i < 0 {
		return Line{}, false
	}
	return c.lines[i], true
}

func (c Cart) Len() int { return len(c.lines) }

func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }
