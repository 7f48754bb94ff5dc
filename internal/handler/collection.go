package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kivumart/kivumart-api/internal/domain/collection"
	"github.com/kivumart/kivumart-api/internal/event"
)

type createCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type collectionResponse struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"sellerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toCollectionResponse(c *collection.Collection) collectionResponse {
	return collectionResponse{
		ID:          c.ID,
		SellerID:    c.SellerID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

func (h *Handler) createCollection(w http.ResponseWriter, r *http.Request, userID string) {
	var req createCollectionRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	c := &collection.Collection{
		ID:          uuid.New().String(),
		SellerID:    userID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.collections.Create(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}

	h.bus.Publish(event.CollectionCreated{
		CollectionID: c.ID,
		SellerID:     c.SellerID,
		Name:         c.Name,
	})
	writeJSON(w, http.StatusCreated, toCollectionResponse(c))
}

func (h *Handler) getCollection(w http.ResponseWriter, r *http.Request, _ string) {
	c, err := h.collections.GetByID(r.Context(), r.PathValue("collectionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionResponse(c))
}

// listCollections returns the caller's own collections.
func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request, userID string) {
	collections, err := h.collections.ListBySeller(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]collectionResponse, 0, len(collections))
	for i := range collections {
		resp = append(resp, toCollectionResponse(&collections[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}
