package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/cart"
)

type cartResponse struct {
	ID            string          `json:"id"`
	Items         []cart.LineItem `json:"items"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalQuantity int             `json:"totalQuantity"`
	Status        string          `json:"status"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return cartResponse{
		ID:            c.ID,
		Items:         items,
		TotalPrice:    c.TotalPrice,
		TotalQuantity: c.TotalQuantity,
		Status:        string(c.Status),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, userID string) {
	c, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, userID string) {
	var req addItemRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ProductID == "" {
		badRequest(w, "productId is required")
		return
	}

	c, err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResponse(c))
}

type updateItemsRequest struct {
	Items []addItemRequest `json:"items"`
}

func (h *Handler) updateCartItems(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateItemsRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		badRequest(w, "items is required")
		return
	}

	updates := make([]cart.ItemUpdate, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" {
			badRequest(w, "productId is required")
			return
		}
		updates = append(updates, cart.ItemUpdate{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	c, err := h.carts.UpdateItems(r.Context(), userID, updates)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request, userID string) {
	c, err := h.carts.RemoveItem(r.Context(), userID, r.PathValue("productID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, userID string) {
	c, err := h.carts.Clear(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}
