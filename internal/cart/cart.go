// Package cart holds the lines of the sale being built at the register.
// A cart is never persisted.
package cart

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/shopspring/decimal"
)

// StockChecker reports the current stock of a product.
type StockChecker interface {
	FindByName(name string) (domain.Product, error)
}

// Cart is an ordered list of lines, at most one per product.
type Cart struct {
	stock StockChecker
	items []domain.CartItem
}

// New returns an empty cart checked against stock.
func New(stock StockChecker) *Cart {
	return &Cart{stock: stock}
}

// Add puts quantity of product in the cart at unitPrice. A product already
// in the cart has its quantity increased and its price replaced. The
// resulting quantity is checked against current stock.
func (c *Cart) Add(product domain.Product, quantity int, unitPrice decimal.Decimal) error {
	if quantity < 1 {
		return apperr.Invalid("quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return apperr.Invalid("price cannot be negative")
	}
	name := domain.CanonicalName(product.Name)

	i := c.index(name)
	total := quantity
	if i >= 0 {
		total += c.items[i].Quantity
	}
	if err := c.checkStock(name, total); err != nil {
		return err
	}

	if i >= 0 {
		c.items[i].Quantity = total
		c.items[i].UnitPrice = unitPrice
		return nil
	}
	c.items = append(c.items, domain.CartItem{ProductName: name, Quantity: quantity, UnitPrice: unitPrice})
	return nil
}

// Remove drops a line.
func (c *Cart) Remove(productName string) error {
	i := c.index(domain.CanonicalName(productName))
	if i < 0 {
		return fmt.Errorf("%w: %s not in cart", apperr.ErrProductNotFound, productName)
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return nil
}

// UpdateLine sets a line's quantity and price. A quantity of zero removes
// the line.
func (c *Cart) UpdateLine(productName string, quantity int, unitPrice decimal.Decimal) error {
	name := domain.CanonicalName(productName)
	i := c.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s not in cart", apperr.ErrProductNotFound, productName)
	}
	switch {
	case quantity == 0:
		return c.Remove(name)
	case quantity < 0:
		return apperr.Invalid("quantity must be at least 1")
	case unitPrice.IsNegative():
		return apperr.Invalid("price cannot be negative")
	}
	if err := c.checkStock(name, quantity); err != nil {
		return err
	}
	c.items[i].Quantity = quantity
	c.items[i].UnitPrice = unitPrice
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() { c.items = nil }

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []domain.CartItem {
	return append([]domain.CartItem(nil), c.items...)
}

// Line returns one line.
func (c *Cart) Line(productName string) (domain.CartItem, bool) {
	i := c.index(domain.CanonicalName(productName))
	if i < 0 {
		return domain.CartItem{}, false
	}
	return c.items[i], true
}

// Len is the number of lines.
func (c *Cart) Len() int { return len(c.items) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// Subtotal is the sum of line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Units is the total quantity across lines.
func (c *Cart) Units() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) index(name string) int {
	for i, item := range c.items {
		if strings.EqualFold(item.ProductName, name) {
			return i
		}
	}
	return -1
}

func (c *Cart) checkStock(name string, quantity int) error {
	if c.stock == nil {
		return nil
	}
	p, err := c.stock.FindByName(name)
	if err != nil {
		return err
	}
	if quantity > p.Quantity {
		return apperr.InsufficientStock(p.Name, quantity, p.Quantity)
	}
	return nil
}
