package cart

import (
	"errors"
	"math"

	"blackmarket/internal/catalog"
	"blackmarket/internal/logger"
)

// MaxQuantity caps the quantity of a single line.
const MaxQuantity = 9999

var (
	ErrCartFull   = errors.New("cart is full")
	ErrOutOfStock = errors.New("item is out of stock")
)

// Line is one cart entry. Price is the unit price captured when the item was
// first added and is never refreshed from the catalog.
type Line struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Category string `json:"category"`
}

// Subtotal is Price * Quantity, saturating at math.MaxInt64.
func (l Line) Subtotal() int64 {
	if l.Price <= 0 || l.Quantity <= 0 {
		return 0
	}
	if l.Price > math.MaxInt64/int64(l.Quantity) {
		return math.MaxInt64
	}
	return l.Price * int64(l.Quantity)
}

func clampQuantity(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// Cart keeps at most one line per item name, in insertion order. Quantities
// are always positive. It is not safe for concurrent use; the owning session
// serialises access.
type Cart struct {
	lines    []Line
	maxLines int
}

// New returns an empty cart accepting up to maxLines distinct items.
func New(maxLines int) *Cart {
	return &Cart{maxLines: maxLines}
}

// Restore rebuilds a cart from host-persisted lines. Lines without a name or
// with a non-positive quantity are dropped and repeated names are merged into
// the first occurrence.
func Restore(maxLines int, lines []Line) *Cart {
	c := New(maxLines)
	for _, l := range lines {
		if l.Name == "" || l.Quantity <= 0 {
			logger.LogWarn("Dropping persisted cart line %q with quantity %d", l.Name, l.Quantity)
			continue
		}
		l.Quantity = clampQuantity(l.Quantity)
		if i := c.index(l.Name); i >= 0 {
			c.lines[i].Quantity = clampQuantity(c.lines[i].Quantity + l.Quantity)
			continue
		}
		c.lines = append(c.lines, l)
	}
	if maxLines > 0 && len(c.lines) > maxLines {
		logger.LogWarn("Persisted cart holds %d lines, above the limit of %d", len(c.lines), maxLines)
	}
	return c
}

func (c *Cart) index(name string) int {
	for i := range c.lines {
		if c.lines[i].Name == name {
			return i
		}
	}
	return -1
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// MaxLines is the configured line limit.
func (c *Cart) MaxLines() int {
	return c.maxLines
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Find returns the line for name.
func (c *Cart) Find(name string) (Line, bool) {
	if i := c.index(name); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// Add puts one unit of item into the cart. The line limit is checked before
// anything else, so a full cart rejects even items it already holds. Tracked
// items need currentStock > 0. Returns the resulting line.
func (c *Cart) Add(item catalog.Item, categoryID string, currentStock int) (Line, error) {
	if len(c.lines) >= c.maxLines {
		return Line{}, ErrCartFull
	}
	if item.Tracked() && currentStock <= 0 {
		return Line{}, ErrOutOfStock
	}

	if i := c.index(item.Name); i >= 0 {
		c.lines[i].Quantity = clampQuantity(c.lines[i].Quantity + 1)
		return c.lines[i], nil
	}

	line := Line{
		Name:     item.Name,
		Label:    item.Label,
		Price:    item.Price,
		Quantity: 1,
		Category: categoryID,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// Remove deletes the line for name and reports whether it existed.
func (c *Cart) Remove(name string) bool {
	i := c.index(name)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

// SetQuantity sets an absolute quantity, capped at MaxQuantity. A quantity of
// zero or less removes the line. found is false when there is no line for name.
func (c *Cart) SetQuantity(name string, quantity int) (found, removed bool) {
	i := c.index(name)
	if i < 0 {
		return false, false
	}
	if quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return true, true
	}
	c.lines[i].Quantity = clampQuantity(quantity)
	return true, false
}

// Total sums Subtotal over every line, saturating at math.MaxInt64. It is
// recomputed on each call.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		sub := l.Subtotal()
		if total > math.MaxInt64-sub {
			return math.MaxInt64
		}
		total += sub
	}
	return total
}
