package handler

import (
	"net/http"
)

type momoPayResponse struct {
	Order orderResponse `json:"order"`
}

func (h *Handler) momoPay(w http.ResponseWriter, r *http.Request, userID string) {
	orderID := r.PathValue("orderID")

	// Ownership check first so foreign order IDs read as absent.
	if _, err := h.orders.Get(r.Context(), userID, orderID); err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.momo.RequestToPay(r.Context(), orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, momoPayResponse{Order: toOrderResponse(o)})
}

type momoStatusResponse struct {
	Status string `json:"status"`
}

func (h *Handler) momoStatus(w http.ResponseWriter, r *http.Request, userID string) {
	orderID := r.PathValue("orderID")

	if _, err := h.orders.Get(r.Context(), userID, orderID); err != nil {
		respondError(w, r, err)
		return
	}

	status, err := h.momo.CheckPaid(r.Context(), orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, momoStatusResponse{Status: status})
}

type cardPayRequest struct {
	Currency        string `json:"currency"`
	PaymentMethodID string `json:"paymentMethodId"`
}

type cardPayResponse struct {
	Order          orderResponse `json:"order"`
	RequiresAction bool          `json:"requiresAction"`
	RedirectURL    string        `json:"redirectUrl,omitempty"`
}

func (h *Handler) cardPay(w http.ResponseWriter, r *http.Request, userID string) {
	var req cardPayRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.PaymentMethodID == "" {
		badRequest(w, "paymentMethodId is required")
		return
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}

	res, err := h.stripe.ProcessPayment(r.Context(), userID, r.PathValue("orderID"), req.Currency, req.PaymentMethodID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cardPayResponse{
		Order:          toOrderResponse(res.Order),
		RequiresAction: res.RequiresAction,
		RedirectURL:    res.RedirectURL,
	})
}
