package session

import (
	"errors"

	"blackmarket/internal/cart"
	"blackmarket/internal/catalog"
)

var (
	ErrClosed        = errors.New("storefront is closed")
	ErrAlreadyOpen   = errors.New("storefront is already open")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrUnknownAction = errors.New("unknown host action")
	ErrLoopStopped   = errors.New("session loop stopped")
	ErrEventPanicked = errors.New("session event panicked")

	ErrCartFull        = cart.ErrCartFull
	ErrOutOfStock      = cart.ErrOutOfStock
	ErrUnknownCategory = catalog.ErrUnknownCategory
	ErrUnknownItem     = catalog.ErrUnknownItem
)

// Code maps a declined action to the short code reported to the overlay.
// Unrecognised errors map to "".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCartFull):
		return "cart_full"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, ErrUnknownItem):
		return "unknown_item"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrAlreadyOpen):
		return "already_open"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	}
	return ""
}
