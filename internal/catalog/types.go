package catalog

// UnlimitedStock is the sentinel the host uses in Item.Stock for items whose
// stock is not tracked.
const UnlimitedStock = -1

// LowStockThreshold is the highest remaining quantity still flagged as low.
const LowStockThreshold = 5

// Item is a purchasable catalog entry as delivered by the host.
// Price is in the smallest currency unit.
type Item struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
}

// Tracked reports whether the item's availability follows the pushed stock
// levels. Only the UnlimitedStock sentinel opts out.
func (i Item) Tracked() bool {
	return i.Stock != UnlimitedStock
}

// Category groups items in display order.
type Category struct {
	ID    string `json:"category"`
	Label string `json:"categoryLabel"`
	Icon  string `json:"categoryIcon"`
	Items []Item `json:"items"`
}

// StockLevel maps category id -> item name -> remaining quantity. Pushed by
// the host as a full snapshot.
type StockLevel map[string]map[string]int

// Current returns the remaining quantity, treating unknown entries as zero.
func (s StockLevel) Current(categoryID, itemName string) int {
	if s == nil {
		return 0
	}
	return s[categoryID][itemName]
}

// Clone copies the snapshot so later pushes cannot alias it.
func (s StockLevel) Clone() StockLevel {
	out := make(StockLevel, len(s))
	for cat, items := range s {
		inner := make(map[string]int, len(items))
		for name, qty := range items {
			inner[name] = qty
		}
		out[cat] = inner
	}
	return out
}

// Availability is the presentation-only stock state of an item, recomputed
// on every render.
type Availability struct {
	Unlimited  bool `json:"unlimited"`
	Current    int  `json:"current"`
	OutOfStock bool `json:"outOfStock"`
	LowStock   bool `json:"lowStock"`
}

// AvailabilityOf derives the stock flags for an item from the live stock.
func AvailabilityOf(item Item, current int) Availability {
	if !item.Tracked() {
		return Availability{Unlimited: true, Current: current}
	}
	return Availability{
		Current:    current,
		OutOfStock: current <= 0,
		LowStock:   current > 0 && current <= LowStockThreshold,
	}
}
