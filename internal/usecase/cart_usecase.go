package usecase

import (
	"fmt"
	"sync"

	"github.com/abdalwely/stor-sub001/internal/domain"
)

type CartUsecase interface {
	Add(product *domain.Product, quantity int, variantID string) (domain.CartLine, error)
	SetQuantity(product *domain.Product, quantity int, variantID string) (domain.CartLine, error)
	Remove(productID, variantID string) error
	Lines() []domain.CartLine
	Clear()
}

// DefaultCart is the per-context cart state machine. A line exists only
// with quantity in [1, stock]; reaching zero removes it. The cart is owned
// by one context and never synchronized, unlike the catalog.
type DefaultCart struct {
	mu    sync.Mutex
	lines []domain.CartLine
}

func NewDefaultCart() *DefaultCart {
	return &DefaultCart{}
}

// Add merges into an existing product+variant line by summing quantities,
// clamped to the product's stock. When the requested quantity does not fit,
// the clamped line is kept and ErrStockExceeded tells the caller why the
// full amount was not honored.
func (c *DefaultCart) Add(product *domain.Product, quantity int, variantID string) (domain.CartLine, error) {
	if product == nil {
		return domain.CartLine{}, fmt.Errorf("product is required")
	}
	if quantity <= 0 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	requested := quantity
	if i := c.find(product.ID, variantID); i >= 0 {
		requested += c.lines[i].Quantity
	}
	return c.apply(product, requested, variantID)
}

// SetQuantity replaces a line's quantity instead of summing. Zero removes
// the line.
func (c *DefaultCart) SetQuantity(product *domain.Product, quantity int, variantID string) (domain.CartLine, error) {
	if product == nil {
		return domain.CartLine{}, fmt.Errorf("product is required")
	}
	if quantity < 0 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(product, quantity, variantID)
}

func (c *DefaultCart) Remove(productID, variantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.find(productID, variantID)
	if i < 0 {
		return domain.ErrLineNotFound
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

func (c *DefaultCart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CartLine(nil), c.lines...)
}

func (c *DefaultCart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// apply installs the requested quantity for product+variant, clamping to
// stock. Callers hold the lock.
func (c *DefaultCart) apply(product *domain.Product, requested int, variantID string) (domain.CartLine, error) {
	clamped := requested
	if clamped > product.Stock {
		clamped = product.Stock
	}

	i := c.find(product.ID, variantID)
	if clamped <= 0 {
		if i >= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		if requested > product.Stock {
			// Out of stock entirely.
			return domain.CartLine{}, fmt.Errorf("%s: %w", product.ID, domain.ErrStockExceeded)
		}
		return domain.CartLine{}, nil
	}

	line := domain.CartLine{
		ProductID: product.ID,
		Quantity:  clamped,
		VariantID: variantID,
	}
	if i >= 0 {
		c.lines[i] = line
	} else {
		c.lines = append(c.lines, line)
	}

	if requested > product.Stock {
		return line, fmt.Errorf("%s: %w", product.ID, domain.ErrStockExceeded)
	}
	return line, nil
}

func (c *DefaultCart) find(productID, variantID string) int {
	for i, l := range c.lines {
		if l.SameItem(domain.CartLine{ProductID: productID, VariantID: variantID}) {
			return i
		}
	}
	return -1
}
