package catalog

import (
	"fmt"
	"time"

	"blackmarket/internal/logger"
)

// Catalog is the read-only mirror of the host's categories for one session.
// Category order is display order.
type Catalog struct {
	categories []Category
	byID       map[string]int
	items      map[string]map[string]int // category -> item name -> index
	loadedAt   time.Time
}

// New indexes the categories. Duplicate category ids or item names keep the
// first occurrence; later ones are dropped with a warning.
func New(categories []Category) *Catalog {
	c := &Catalog{
		byID:     make(map[string]int, len(categories)),
		items:    make(map[string]map[string]int, len(categories)),
		loadedAt: time.Now(),
	}

	for _, cat := range categories {
		if _, dup := c.byID[cat.ID]; dup {
			logger.LogWarn("Duplicate category %q in catalog, keeping first", cat.ID)
			continue
		}

		kept := make([]Item, 0, len(cat.Items))
		index := make(map[string]int, len(cat.Items))
		for _, item := range cat.Items {
			if _, dup := index[item.Name]; dup {
				logger.LogWarn("Duplicate item %q in category %q, keeping first", item.Name, cat.ID)
				continue
			}
			if item.Price < 0 {
				logger.LogWarn("Negative price for %q in category %q, clamping to 0", item.Name, cat.ID)
				item.Price = 0
			}
			index[item.Name] = len(kept)
			kept = append(kept, item)
		}
		cat.Items = kept

		c.byID[cat.ID] = len(c.categories)
		c.items[cat.ID] = index
		c.categories = append(c.categories, cat)
	}

	return c
}

// Categories returns the categories in display order.
func (c *Catalog) Categories() []Category {
	if c == nil {
		return nil
	}
	return c.categories
}

// Len is the number of categories.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.categories)
}

// DefaultCategory is the first category id, or "" for an empty catalog.
func (c *Catalog) DefaultCategory() string {
	if c.Len() == 0 {
		return ""
	}
	return c.categories[0].ID
}

// Category looks a category up by id.
func (c *Catalog) Category(id string) (Category, bool) {
	if c == nil {
		return Category{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// HasCategory reports whether id names a known category.
func (c *Catalog) HasCategory(id string) bool {
	_, ok := c.Category(id)
	return ok
}

// Item finds an item within a category.
func (c *Catalog) Item(categoryID, name string) (Item, error) {
	cat, ok := c.Category(categoryID)
	if !ok {
		return Item{}, fmt.Errorf("category %q: %w", categoryID, ErrUnknownCategory)
	}
	i, ok := c.items[categoryID][name]
	if !ok {
		return Item{}, fmt.Errorf("item %q in category %q: %w", name, categoryID, ErrUnknownItem)
	}
	return cat.Items[i], nil
}

// FilterItems returns the items of categoryID whose label, description or
// name contains searchTerm, case-insensitively, in original order. An empty
// term returns every item. Unknown categories yield nil.
func (c *Catalog) FilterItems(categoryID, searchTerm string) []Item {
	cat, ok := c.Category(categoryID)
	if !ok {
		return nil
	}
	if searchTerm == "" {
		out := make([]Item, len(cat.Items))
		copy(out, cat.Items)
		return out
	}

	m := NewMatcher(searchTerm)
	out := make([]Item, 0, len(cat.Items))
	for _, item := range cat.Items {
		if m.Matches(item.Label) || m.Matches(item.Description) || m.Matches(item.Name) {
			out = append(out, item)
		}
	}
	return out
}

// Stats summarises a catalog for diagnostics.
type Stats struct {
	Categories int
	Items      int
	LoadedAt   time.Time
}

// Stats counts categories and items. A nil catalog has a zero LoadedAt.
func (c *Catalog) Stats() Stats {
	stats := Stats{Categories: c.Len()}
	for _, cat := range c.Categories() {
		stats.Items += len(cat.Items)
	}
	if c != nil {
		stats.LoadedAt = c.loadedAt
	}
	return stats
}
