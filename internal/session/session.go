// Package session holds the storefront state machine: catalog mirror, live
// stock, optimistic cart and the intents it sends back to the host.
//
// A Session is not safe for concurrent use. Run it behind a Loop, which
// processes UI events and host messages one at a time.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"blackmarket/internal/cart"
	"blackmarket/internal/catalog"
	"blackmarket/internal/config"
	"blackmarket/internal/logger"
)

// Animation delays between beginning and finalising a visibility change.
const (
	OpenDelay  = 50 * time.Millisecond
	CloseDelay = 300 * time.Millisecond
)

// Balance is the display-only player currency pushed by the host.
type Balance struct {
	CurrencyType string
	Amount       int64
	Known        bool
}

// Options wires a session to its collaborators. Every field is optional.
type Options struct {
	Emitter  Emitter
	Renderer Renderer
	Visuals  *catalog.Visuals

	// Schedule runs fn after d on the session's own goroutine. Without it
	// transitions are finalised immediately.
	Schedule func(d time.Duration, fn func())
}

// Session is the single storefront instance owned by the embedding boundary.
type Session struct {
	emitter  Emitter
	renderer Renderer
	visuals  *catalog.Visuals
	schedule func(time.Duration, func())

	id         string
	open       bool
	phase      Phase
	generation uint64

	cfg        config.Storefront
	catalog    *catalog.Catalog
	stock      catalog.StockLevel
	cart       *cart.Cart
	selected   string
	search     string
	dialogOpen bool
	balance    Balance
	cue        string
}

// New returns a closed session.
func New(opts Options) *Session {
	return &Session{
		emitter:  opts.Emitter,
		renderer: opts.Renderer,
		visuals:  opts.Visuals,
		schedule: opts.Schedule,
		phase:    PhaseHidden,
		cfg:      config.Storefront{}.WithDefaults(),
		catalog:  catalog.New(nil),
		cart:     cart.New(config.DefaultMaxCartItems),
	}
}

func (s *Session) after(d time.Duration, fn func()) {
	if s.schedule == nil {
		fn()
		return
	}
	s.schedule(d, fn)
}

// ID identifies the current open session; empty while closed.
func (s *Session) ID() string { return s.id }

// IsOpen reports whether the storefront is visible.
func (s *Session) IsOpen() bool { return s.open }

// Phase is the current visibility phase.
func (s *Session) Phase() Phase { return s.phase }

// Config is the storefront configuration of the current session.
func (s *Session) Config() config.Storefront { return s.cfg }

// SelectedCategory is the active category id.
func (s *Session) SelectedCategory() string { return s.selected }

// SearchTerm is the active, normalised search term.
func (s *Session) SearchTerm() string { return s.search }

// CartLines returns a copy of the cart lines.
func (s *Session) CartLines() []cart.Line { return s.cart.Lines() }

// CartTotal is the sum of price * quantity over the cart, recomputed on each
// call.
func (s *Session) CartTotal() int64 { return s.cart.Total() }

// Balance returns the balance display state.
func (s *Session) Balance() Balance { return s.balance }

// DialogOpen reports whether the purchase confirmation is showing.
func (s *Session) DialogOpen() bool { return s.dialogOpen }

// Stock returns the latest stock snapshot.
func (s *Session) Stock() catalog.StockLevel { return s.stock }

// CatalogStats describes the catalog mirrored by the current session.
func (s *Session) CatalogStats() catalog.Stats { return s.catalog.Stats() }

// Open starts a session from the host's openUI payload. It is rejected with
// ErrAlreadyOpen while a session is open so a late duplicate cannot clobber
// the cart.
func (s *Session) Open(p OpenPayload) error {
	if s.open {
		return ErrAlreadyOpen
	}

	s.id = uuid.NewString()
	s.open = true
	s.generation++
	s.cfg = p.Config.WithDefaults()
	s.catalog = catalog.New(p.Categories)
	s.stock = p.Stock.Clone()
	s.cart = cart.Restore(s.cfg.MaxCartItems, p.Cart)
	s.selected = s.catalog.DefaultCategory()
	s.search = ""
	s.dialogOpen = false
	if !s.balance.Known {
		s.balance = Balance{CurrencyType: s.cfg.Currency}
	}

	logger.LogInfo("Storefront opened (session %s): %d categories, %d cart lines",
		s.id, s.catalog.Len(), s.cart.Len())

	s.phase = PhaseOpening
	s.render(ReasonFull)

	gen := s.generation
	s.after(OpenDelay, func() {
		if s.generation != gen || !s.open {
			return
		}
		s.phase = PhaseOpen
		s.render(ReasonVisibility)
	})
	return nil
}

// Close hides the storefront, tells the host once and clears all session
// state. Closing an already closed storefront does nothing.
func (s *Session) Close() {
	if !s.open {
		return
	}

	id := s.id
	s.open = false
	s.dialogOpen = false
	s.generation++
	s.phase = PhaseClosing
	s.render(ReasonVisibility)

	s.emit(ActionCloseUI, CloseBody{})
	s.reset()
	logger.LogInfo("Storefront closed (session %s)", id)

	gen := s.generation
	s.after(CloseDelay, func() {
		if s.generation != gen || s.open {
			return
		}
		s.phase = PhaseHidden
		s.render(ReasonVisibility)
	})
}

func (s *Session) reset() {
	s.id = ""
	s.cfg = config.Storefront{}.WithDefaults()
	s.catalog = catalog.New(nil)
	s.stock = nil
	s.cart = cart.New(s.cfg.MaxCartItems)
	s.selected = ""
	s.search = ""
	s.balance = Balance{}
	s.cue = ""
}

// UpdateStock replaces the stock snapshot wholesale. The cart is untouched;
// only the item grid is re-rendered.
func (s *Session) UpdateStock(stock catalog.StockLevel) {
	s.stock = stock.Clone()
	if s.open {
		s.render(ReasonItems)
	}
}

// UpdatePlayerMoney records the balance shown in the header.
func (s *Session) UpdatePlayerMoney(p MoneyPayload) {
	currency := p.CurrencyType
	if currency == "" {
		currency = s.cfg.Currency
	}
	s.balance = Balance{CurrencyType: currency, Amount: p.Amount, Known: true}
	s.RefreshBalanceDisplay()
}

// RefreshBalanceDisplay re-renders the balance indicator from current state.
// The embedding layer calls it whenever its render target becomes ready.
func (s *Session) RefreshBalanceDisplay() {
	if s.open {
		s.render(ReasonBalance)
	}
}

// SelectCategory switches the active category.
func (s *Session) SelectCategory(id string) error {
	if !s.open {
		return ErrClosed
	}
	if !s.catalog.HasCategory(id) {
		logger.LogDebug("Ignoring selection of unknown category %q", id)
		return ErrUnknownCategory
	}
	s.selected = id
	s.cue = CueTabSwitch
	s.render(ReasonItems)
	return nil
}

// Search sets the item filter from raw input.
func (s *Session) Search(raw string) error {
	if !s.open {
		return ErrClosed
	}
	s.search = catalog.NormalizeSearchTerm(raw)
	s.render(ReasonItems)
	return nil
}

// ClearSearch removes the item filter.
func (s *Session) ClearSearch() error {
	return s.Search("")
}

// FilterItems returns the items of categoryID matching searchTerm.
func (s *Session) FilterItems(categoryID, searchTerm string) []catalog.Item {
	return s.catalog.FilterItems(categoryID, searchTerm)
}

// AddToCart adds one unit of an item. Rejections are reported to the host as
// a notification and no addToCart intent is sent. Stock is never decremented
// locally; the host pushes a new snapshot instead.
func (s *Session) AddToCart(categoryID, itemName string) error {
	if !s.open {
		return ErrClosed
	}
	item, err := s.catalog.Item(categoryID, itemName)
	if err != nil {
		logger.LogWarn("Rejecting add to cart: %v", err)
		return err
	}

	line, err := s.cart.Add(item, categoryID, s.stock.Current(categoryID, itemName))
	switch {
	case errors.Is(err, ErrCartFull):
		s.notify("Cart is full", NotifyError)
		return err
	case errors.Is(err, ErrOutOfStock):
		s.notify("Item is out of stock", NotifyError)
		return err
	case err != nil:
		return err
	}

	logger.LogDebug("Added %s to cart (quantity %d)", line.Name, line.Quantity)
	s.cue = CueAddToCart
	s.render(ReasonCart)
	s.emit(ActionAddToCart, AddToCartBody{ItemName: itemName, Category: categoryID, Quantity: 1})
	return nil
}

// RemoveFromCart deletes a line. Absent items are a no-op.
func (s *Session) RemoveFromCart(itemName string) error {
	if !s.open {
		return ErrClosed
	}
	if !s.cart.Remove(itemName) {
		return nil
	}
	s.cue = CueRemoveFromCart
	s.render(ReasonCart)
	s.emit(ActionRemoveFromCart, RemoveFromCartBody{ItemName: itemName})
	return nil
}

// UpdateCartQuantity sets an absolute quantity; zero or less removes the
// line. Absent items are a no-op.
func (s *Session) UpdateCartQuantity(itemName string, quantity int) error {
	if !s.open {
		return ErrClosed
	}
	if _, ok := s.cart.Find(itemName); !ok {
		return nil
	}
	if quantity <= 0 {
		return s.RemoveFromCart(itemName)
	}

	s.cart.SetQuantity(itemName, quantity)
	line, _ := s.cart.Find(itemName)
	s.render(ReasonCart)
	s.emit(ActionUpdateCartQuantity, UpdateCartQuantityBody{ItemName: itemName, Quantity: line.Quantity})
	return nil
}

// ShowPurchaseConfirm opens the confirmation dialog for a non-empty cart.
func (s *Session) ShowPurchaseConfirm() error {
	if !s.open {
		return ErrClosed
	}
	if s.cart.Empty() {
		return ErrEmptyCart
	}
	s.dialogOpen = true
	s.cue = CueModalOpen
	s.render(ReasonDialog)
	return nil
}

// CancelPurchase hides the confirmation dialog.
func (s *Session) CancelPurchase() error {
	if !s.open {
		return ErrClosed
	}
	if s.dialogOpen {
		s.dialogOpen = false
		s.render(ReasonDialog)
	}
	return nil
}

// ConfirmPurchase sends the whole cart to the host. The cart is kept as is:
// the host decides the outcome and answers with a close or a stock push.
// Nothing is rolled back if the intent never arrives.
func (s *Session) ConfirmPurchase() error {
	if !s.open {
		return ErrClosed
	}
	if s.cart.Empty() {
		return ErrEmptyCart
	}
	if s.dialogOpen {
		s.dialogOpen = false
		s.render(ReasonDialog)
	}

	lines := s.cart.Lines()
	logger.LogInfo("Purchase requested (session %s): %d lines, total %d", s.id, len(lines), s.cart.Total())
	s.emit(ActionPurchase, PurchaseBody{Cart: lines})
	s.notify("Processing your purchase...", NotifyInfo)
	return nil
}
