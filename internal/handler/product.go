package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/product"
	"github.com/kivumart/kivumart-api/internal/event"
)

type createProductRequest struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	ExpiryDate *time.Time      `json:"expiryDate"`
	Images     []string        `json:"images"`
}

type productResponse struct {
	ID         string          `json:"id"`
	SellerID   string          `json:"sellerId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Status     string          `json:"status"`
	ExpiryDate *time.Time      `json:"expiryDate,omitempty"`
	Expired    bool            `json:"expired"`
	Images     []string        `json:"images"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toProductResponse(p *product.Product) productResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productResponse{
		ID:         p.ID,
		SellerID:   p.SellerID,
		Name:       p.Name,
		Price:      p.Price,
		Quantity:   p.Quantity,
		Status:     string(p.Status),
		ExpiryDate: p.ExpiryDate,
		Expired:    p.Expired,
		Images:     images,
		CreatedAt:  p.CreatedAt,
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request, userID string) {
	var req createProductRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}
	if req.Price.IsNegative() || req.Price.IsZero() {
		badRequest(w, "price must be positive")
		return
	}
	if req.Quantity < 0 {
		badRequest(w, "quantity must not be negative")
		return
	}

	p := &product.Product{
		ID:         uuid.New().String(),
		SellerID:   userID,
		Name:       req.Name,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Status:     product.StatusAvailable,
		ExpiryDate: req.ExpiryDate,
		Images:     req.Images,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}

	h.bus.Publish(event.ProductCreated{
		ProductID: p.ID,
		SellerID:  p.SellerID,
		Name:      p.Name,
	})
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
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

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("productID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}
