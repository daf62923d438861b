// Package checkout is the storefront side of placing an order: a persisted
// cart, the checkout state machine and a JSON client for the shop API.
package checkout

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrEmptyCart = errors.New("cart is empty")

// Line is one product in the cart. Price and weight are what the catalog
// showed when the line was added; the server reprices on checkout.
type Line struct {
	ProductID uint            `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	WeightKg  decimal.Decimal `json:"weightKg"`
	Image     string          `json:"image,omitempty"`
}

// Storage persists cart lines between sessions.
type Storage interface {
	Load() ([]Line, error)
	Save(lines []Line) error
}

// Cart is safe for concurrent use. Every mutation is written through to
// the storage before it returns.
type Cart struct {
	mu    sync.Mutex
	lines []Line
	store Storage
}

func NewCart(store Storage) (*Cart, error) {
	if store == nil {
		store = &MemoryStorage{}
	}
	lines, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Cart{lines: lines, store: store}, nil
}

func (c *Cart) commit(next []Line) error {
	if err := c.store.Save(next); err != nil {
		return err
	}
	c.lines = next
	return nil
}

func (c *Cart) snapshot() []Line {
	return append([]Line(nil), c.lines...)
}

// Add puts qty of the product in the cart, merging with an existing line.
func (c *Cart) Add(l Line) error {
	if l.ProductID == 0 {
		return errors.New("product id is required")
	}
	if l.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.snapshot()
	for i := range next {
		if next[i].ProductID == l.ProductID {
			next[i].Quantity += l.Quantity
			if l.Name != "" {
				next[i].Name = l.Name
				next[i].Price = l.Price
				next[i].WeightKg = l.WeightKg
				next[i].Image = l.Image
			}
			return c.commit(next)
		}
	}
	return c.commit(append(next, l))
}

// SetQuantity changes a line's quantity; zero or less removes it.
func (c *Cart) SetQuantity(productID uint, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.snapshot()
	for i := range next {
		if next[i].ProductID != productID {
			continue
		}
		if qty <= 0 {
			next = append(next[:i], next[i+1:]...)
		} else {
			next[i].Quantity = qty
		}
		return c.commit(next)
	}
	return nil
}

func (c *Cart) Remove(productID uint) error {
	return c.SetQuantity(productID, 0)
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit(nil)
}

func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum.Round(2)
}

func (c *Cart) WeightKg() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.WeightKg.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}
