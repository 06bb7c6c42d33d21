package session

import (
	"blackmarket/internal/cart"
	"blackmarket/internal/catalog"
	"blackmarket/internal/format"
)

// Phase is the visibility state the renderer animates between.
type Phase string

const (
	PhaseHidden  Phase = "hidden"
	PhaseOpening Phase = "opening"
	PhaseOpen    Phase = "open"
	PhaseClosing Phase = "closing"
)

// Reason tells the renderer which part of the view changed.
type Reason string

const (
	ReasonFull       Reason = "full"
	ReasonItems      Reason = "items"
	ReasonCart       Reason = "cart"
	ReasonDialog     Reason = "dialog"
	ReasonBalance    Reason = "balance"
	ReasonVisibility Reason = "visibility"
)

// Sound cues forwarded to the renderer when sounds are enabled.
const (
	CueAddToCart      = "add-to-cart"
	CueRemoveFromCart = "remove-from-cart"
	CueTabSwitch      = "tab-switch"
	CueModalOpen      = "modal-open"
)

// Renderer draws views. Render is called from the session loop and must not
// call back into the session.
type Renderer interface {
	Render(View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

// View is the complete render-ready state of the storefront.
type View struct {
	SessionID  string        `json:"sessionId"`
	Phase      Phase         `json:"phase"`
	Reason     Reason        `json:"reason"`
	Cue        string        `json:"cue,omitempty"`
	Title      string        `json:"title"`
	Subtitle   string        `json:"subtitle"`
	Categories []CategoryTab `json:"categories"`
	Selected   string        `json:"selected"`
	Search     string        `json:"search"`
	Loading    bool          `json:"loading"`
	NoResults  bool          `json:"noResults"`
	Items      []ItemCard    `json:"items"`
	Cart       CartView      `json:"cart"`
	Dialog     *DialogView   `json:"dialog,omitempty"`
	Balance    BalanceView   `json:"balance"`
}

type CategoryTab struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Icon   string `json:"icon"`
	Active bool   `json:"active"`
}

type ItemCard struct {
	Name             string               `json:"name"`
	Label            string               `json:"label"`
	Description      string               `json:"description"`
	LabelMarks       []catalog.Span       `json:"labelMarks,omitempty"`
	DescriptionMarks []catalog.Span       `json:"descriptionMarks,omitempty"`
	Price            int64                `json:"price"`
	PriceText        string               `json:"priceText"`
	Stock            catalog.Availability `json:"stock"`
	StockText        string               `json:"stockText"`
	Visual           catalog.Visual       `json:"visual"`
	CanAdd           bool                 `json:"canAdd"`
}

type CartLineView struct {
	cart.Line
	PriceText    string `json:"priceText"`
	SubtotalText string `json:"subtotalText"`
}

type CartView struct {
	Count       int            `json:"count"`
	Lines       []CartLineView `json:"lines"`
	Total       int64          `json:"total"`
	TotalText   string         `json:"totalText"`
	CanPurchase bool           `json:"canPurchase"`
}

// DialogView summarises the cart in the purchase confirmation dialog.
type DialogView struct {
	Lines     []CartLineView `json:"lines"`
	Total     int64          `json:"total"`
	TotalText string         `json:"totalText"`
}

type BalanceView struct {
	CurrencyType string `json:"currencyType"`
	Label        string `json:"label"`
	Amount       *int64 `json:"amount,omitempty"`
	AmountText   string `json:"amountText"`
}

// View builds the full current view.
func (s *Session) View() View {
	return s.buildView(ReasonFull)
}

func (s *Session) buildView(reason Reason) View {
	v := View{
		SessionID: s.id,
		Phase:     s.phase,
		Reason:    reason,
		Title:     s.cfg.Title,
		Subtitle:  s.cfg.Subtitle,
		Selected:  s.selected,
		Search:    s.search,
		Cart:      s.cartView(),
		Balance:   s.balanceView(),
	}

	for _, cat := range s.catalog.Categories() {
		v.Categories = append(v.Categories, CategoryTab{
			ID:     cat.ID,
			Label:  cat.Label,
			Icon:   cat.Icon,
			Active: cat.ID == s.selected,
		})
	}

	if s.selected == "" {
		v.Loading = true
	} else if s.catalog.HasCategory(s.selected) {
		v.Items = s.itemCards()
		v.NoResults = len(v.Items) == 0
	}

	if s.dialogOpen {
		v.Dialog = &DialogView{
			Lines:     v.Cart.Lines,
			Total:     v.Cart.Total,
			TotalText: v.Cart.TotalText,
		}
	}
	return v
}

func (s *Session) itemCards() []ItemCard {
	items := s.catalog.FilterItems(s.selected, s.search)
	m := catalog.NewMatcher(s.search)

	cards := make([]ItemCard, 0, len(items))
	for _, item := range items {
		stock := catalog.AvailabilityOf(item, s.stock.Current(s.selected, item.Name))
		stockText := "Unlimited"
		if !stock.Unlimited {
			stockText = "Stock: " + format.Number(int64(stock.Current))
		}
		cards = append(cards, ItemCard{
			Name:             item.Name,
			Label:            item.Label,
			Description:      item.Description,
			LabelMarks:       m.Highlight(item.Label),
			DescriptionMarks: m.Highlight(item.Description),
			Price:            item.Price,
			PriceText:        format.Money(item.Price),
			Stock:            stock,
			StockText:        stockText,
			Visual:           s.visuals.Resolve(s.selected, item.Name),
			CanAdd:           !stock.OutOfStock,
		})
	}
	return cards
}

func (s *Session) cartView() CartView {
	if s.cart == nil {
		return CartView{TotalText: format.Money(0)}
	}
	lines := s.cart.Lines()
	out := CartView{
		Count:       len(lines),
		Lines:       make([]CartLineView, 0, len(lines)),
		Total:       s.cart.Total(),
		CanPurchase: len(lines) > 0,
	}
	out.TotalText = format.Money(out.Total)
	for _, l := range lines {
		out.Lines = append(out.Lines, CartLineView{
			Line:         l,
			PriceText:    format.Money(l.Price),
			SubtotalText: format.Money(l.Subtotal()),
		})
	}
	return out
}

func (s *Session) balanceView() BalanceView {
	currency := s.balance.CurrencyType
	if currency == "" {
		currency = s.cfg.Currency
	}
	bv := BalanceView{
		CurrencyType: currency,
		Label:        format.CurrencyLabel(currency),
		AmountText:   format.Pending,
	}
	if s.balance.Known {
		amount := s.balance.Amount
		bv.Amount = &amount
		bv.AmountText = format.Number(amount)
	}
	return bv
}

func (s *Session) render(reason Reason) {
	if s.renderer == nil {
		s.cue = ""
		return
	}
	v := s.buildView(reason)
	if s.cfg.EnableSounds {
		v.Cue = s.cue
	}
	s.cue = ""
	s.renderer.Render(v)
}
