package handler

import (
	"net/http"
)

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request, userID string) {
	productID := r.PathValue("productID")

	// The foreign key would reject unknown products anyway, but checking
	// first turns that into a clean 404.
	if _, err := h.products.GetByID(r.Context(), productID); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.wishlists.Add(r.Context(), userID, productID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.wishlists.Remove(r.Context(), userID, r.PathValue("productID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listWishlist(w http.ResponseWriter, r *http.Request, userID string) {
	products, err := h.wishlists.List(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, toProductResponse(&products[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}
