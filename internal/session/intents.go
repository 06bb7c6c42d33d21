package session

import (
	"github.com/google/uuid"

	"blackmarket/internal/cart"
)

// Outbound intent actions, each a callback endpoint on the host.
const (
	ActionCloseUI            = "closeUI"
	ActionAddToCart          = "addToCart"
	ActionRemoveFromCart     = "removeFromCart"
	ActionUpdateCartQuantity = "updateCartQuantity"
	ActionPurchase           = "purchase"
	ActionShowNotification   = "showNotification"
)

// Notification types understood by the host.
const (
	NotifyError = "error"
	NotifyInfo  = "info"
)

// Intent is a one-way request to the host. Nothing waits for its outcome.
type Intent struct {
	ID        string
	SessionID string
	Action    string
	Body      interface{}
}

// Emitter delivers intents to the host. Emit must not block the caller and
// must swallow delivery failures.
type Emitter interface {
	Emit(Intent)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Intent)

func (f EmitterFunc) Emit(in Intent) { f(in) }

type CloseBody struct{}

type AddToCartBody struct {
	ItemName string `json:"itemName"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

type RemoveFromCartBody struct {
	ItemName string `json:"itemName"`
}

type UpdateCartQuantityBody struct {
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

type PurchaseBody struct {
	Cart []cart.Line `json:"cart"`
}

type NotificationBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (s *Session) emit(action string, body interface{}) {
	in := Intent{
		ID:        uuid.NewString(),
		SessionID: s.id,
		Action:    action,
		Body:      body,
	}
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(in)
}

func (s *Session) notify(message, kind string) {
	s.emit(ActionShowNotification, NotificationBody{Message: message, Type: kind})
}
