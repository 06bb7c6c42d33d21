// Package api binds the host and overlay HTTP endpoints to the session loop.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"blackmarket/internal/logger"
	"blackmarket/internal/middleware"
	"blackmarket/internal/session"
)

const (
	maxBodyBytes   = 1 << 20
	defaultTimeout = 5 * time.Second
)

// Handlers holds the session loop every endpoint submits to.
type Handlers struct {
	loop    *session.Loop
	timeout time.Duration
}

// New returns handlers for loop.
func New(loop *session.Loop) *Handlers {
	return &Handlers{loop: loop, timeout: defaultTimeout}
}

// Register mounts every host and UI endpoint on mux. ui wraps the overlay
// endpoints and host wraps the host endpoint.
func (h *Handlers) Register(mux *http.ServeMux, host, ui func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/host/message", host(post(h.HostMessage)))

	mux.HandleFunc("/api/ui/view", ui(get(h.GetView)))
	mux.HandleFunc("/api/ui/category", ui(post(h.SelectCategory)))
	mux.HandleFunc("/api/ui/search", ui(post(h.Search)))
	mux.HandleFunc("/api/ui/search/clear", ui(post(h.ClearSearch)))
	mux.HandleFunc("/api/ui/cart/add", ui(post(h.AddToCart)))
	mux.HandleFunc("/api/ui/cart/remove", ui(post(h.RemoveFromCart)))
	mux.HandleFunc("/api/ui/cart/quantity", ui(post(h.UpdateCartQuantity)))
	mux.HandleFunc("/api/ui/purchase/show", ui(post(h.ShowPurchaseConfirm)))
	mux.HandleFunc("/api/ui/purchase/cancel", ui(post(h.CancelPurchase)))
	mux.HandleFunc("/api/ui/purchase/confirm", ui(post(h.ConfirmPurchase)))
	mux.HandleFunc("/api/ui/close", ui(post(h.Close)))
	mux.HandleFunc("/api/ui/balance/refresh", ui(post(h.RefreshBalance)))
}

func post(next http.HandlerFunc) http.HandlerFunc {
	return method(http.MethodPost, next)
}

func get(next http.HandlerFunc) http.HandlerFunc {
	return method(http.MethodGet, next)
}

func method(m string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			w.Header().Set("Allow", m)
			middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
				"Method not allowed", "")
			return
		}
		next(w, r)
	}
}

// =============================================================================
// HOST
// =============================================================================

// HostMessage applies one {action, data} message pushed by the host.
func (h *Handlers) HostMessage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_body", "Could not read request body", err.Error())
		return
	}

	msg, err := session.DecodeMessage(raw)
	if err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_message", "Malformed host message", err.Error())
		return
	}

	h.run(w, r, func(s *session.Session) error {
		return s.HandleMessage(msg)
	})
}

// =============================================================================
// UI
// =============================================================================

type categoryRequest struct {
	ID string `json:"id"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type addRequest struct {
	ItemName string `json:"itemName"`
	Category string `json:"category"`
}

type removeRequest struct {
	ItemName string `json:"itemName"`
}

type quantityRequest struct {
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

// GetView returns the current full view.
func (h *Handlers) GetView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	v, err := h.loop.View(ctx)
	if err != nil {
		writeLoopError(w, r, err)
		return
	}
	middleware.WriteAPISuccess(w, r, v)
}

func (h *Handlers) SelectCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, func(s *session.Session) error { return s.SelectCategory(req.ID) })
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, func(s *session.Session) error { return s.Search(req.Term) })
}

func (h *Handlers) ClearSearch(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*session.Session).ClearSearch)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, func(s *session.Session) error { return s.AddToCart(req.Category, req.ItemName) })
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, func(s *session.Session) error { return s.RemoveFromCart(req.ItemName) })
}

func (h *Handlers) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, func(s *session.Session) error { return s.UpdateCartQuantity(req.ItemName, req.Quantity) })
}

func (h *Handlers) ShowPurchaseConfirm(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*session.Session).ShowPurchaseConfirm)
}

func (h *Handlers) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*session.Session).CancelPurchase)
}

func (h *Handlers) ConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*session.Session).ConfirmPurchase)
}

func (h *Handlers) Close(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(s *session.Session) error {
		s.Close()
		return nil
	})
}

func (h *Handlers) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(s *session.Session) error {
		s.RefreshBalanceDisplay()
		return nil
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := middleware.ParseJSONRequest(r, v); err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
		return false
	}
	return true
}

// run applies fn on the loop and answers with the resulting view. Declined
// actions still answer 200, tagged with their code.
func (h *Handlers) run(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var actionErr error
	var view session.View
	err := h.loop.Do(ctx, func(s *session.Session) error {
		actionErr = fn(s)
		view = s.View()
		return nil
	})
	if err != nil {
		writeLoopError(w, r, err)
		return
	}

	if actionErr == nil {
		middleware.WriteAPISuccess(w, r, view)
		return
	}

	if code := session.Code(actionErr); code != "" {
		logger.LogDebug("Action %s declined: %v", r.URL.Path, actionErr)
		middleware.WriteAPIDeclined(w, r, code, view)
		return
	}

	logger.LogHTTPError(r, http.StatusBadRequest, actionErr)
	middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_message", "Request could not be applied", actionErr.Error())
}

func writeLoopError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrEventPanicked) {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "internal_error", "Storefront failed to handle the request", "")
		return
	}
	logger.LogHTTPError(r, http.StatusServiceUnavailable, err)
	if errors.Is(err, session.ErrLoopStopped) {
		middleware.WriteAPIError(w, r, http.StatusServiceUnavailable, "shutting_down", "Storefront is shutting down", "")
		return
	}
	middleware.WriteAPIError(w, r, http.StatusServiceUnavailable, "busy", "Storefront did not respond in time", err.Error())
}
