package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/orders"
	"github.com/grubstreet/papertrader/internal/store"
)

// OrderHandler handles the order endpoints of a session.
type OrderHandler struct {
	sessions *store.SessionStore
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(sessions *store.SessionStore) *OrderHandler {
	return &OrderHandler{sessions: sessions}
}

// orderRequest is the JSON body for submitting or validating an order.
type orderRequest struct {
	Type           string   `json:"type"`
	Side           string   `json:"side"`
	Ticker         string   `json:"ticker"`
	Quantity       int64    `json:"quantity"`
	LimitPrice     *float64 `json:"limit_price"`
	StopPrice      *float64 `json:"stop_price"`
	ExpiresInTurns *int     `json:"expires_in_turns"`
}

func (req orderRequest) toRequest() orders.Request {
	return orders.Request{
		Type:           domain.OrderType(req.Type),
		Side:           domain.OrderSide(req.Side),
		Ticker:         req.Ticker,
		Quantity:       req.Quantity,
		LimitPrice:     req.LimitPrice,
		StopPrice:      req.StopPrice,
		ExpiresInTurns: req.ExpiresInTurns,
	}
}

type orderResponse struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Side           string   `json:"side"`
	Ticker         string   `json:"ticker"`
	Quantity       int64    `json:"quantity"`
	FilledQuantity int64    `json:"filled_quantity"`
	LimitPrice     *float64 `json:"limit_price,omitempty"`
	StopPrice      *float64 `json:"stop_price,omitempty"`
	Status         string   `json:"status"`
	Triggered      bool     `json:"triggered,omitempty"`
	PlacedAt       int      `json:"placed_at"`
	ExpiresAt      int      `json:"expires_at"`
	FillPrice      *float64 `json:"fill_price,omitempty"`
	FilledAt       *int     `json:"filled_at,omitempty"`
}

func buildOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		Type:           string(o.Type),
		Side:           string(o.Side),
		Ticker:         o.Ticker,
		Quantity:       o.Quantity,
		FilledQuantity: o.FilledQuantity,
		LimitPrice:     o.LimitPrice,
		StopPrice:      o.StopPrice,
		Status:         string(o.Status),
		Triggered:      o.Triggered,
		PlacedAt:       o.PlacedAt,
		ExpiresAt:      o.ExpiresAt,
		FillPrice:      o.FillPrice,
		FilledAt:       o.FilledAt,
	}
}

func buildOrderResponses(list []domain.Order) []orderResponse {
	out := make([]orderResponse, len(list))
	for i, o := range list {
		out[i] = buildOrderResponse(o)
	}
	return out
}

type submitOrderResponse struct {
	Order    orderResponse `json:"order"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Submit handles POST /sessions/{session_id}/orders.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	var req orderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	o, warnings, err := sess.SubmitOrder(req.toRequest())
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, submitOrderResponse{
		Order:    buildOrderResponse(o),
		Warnings: warnings,
	})
}

type validateOrderResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validate handles POST /sessions/{session_id}/orders/validate. It runs
// the advisory checks without submitting anything.
func (h *OrderHandler) Validate(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	var req orderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	v := sess.ValidateOrder(req.toRequest())
	WriteJSON(w, http.StatusOK, validateOrderResponse{
		Valid:    v.Valid,
		Errors:   v.Errors,
		Warnings: v.Warnings,
	})
}

type orderListResponse struct {
	Pending []orderResponse `json:"pending"`
	History []orderResponse `json:"history"`
}

// List handles GET /sessions/{session_id}/orders, returning pending
// orders in submission order and the terminal history oldest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, orderListResponse{
		Pending: buildOrderResponses(sess.PendingOrders()),
		History: buildOrderResponses(sess.OrderHistory()),
	})
}

// Get handles GET /sessions/{session_id}/orders/{order_id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	o, err := sess.Order(chi.URLParam(r, "order_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(o))
}

// Cancel handles DELETE /sessions/{session_id}/orders/{order_id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	o, err := sess.CancelOrder(chi.URLParam(r, "order_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(o))
}
