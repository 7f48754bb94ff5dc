package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/cart"
	"github.com/kivumart/kivumart-api/internal/domain/order"
)

type checkoutRequest struct {
	Delivery struct {
		Address string `json:"address"`
		City    string `json:"city"`
		Country string `json:"country"`
		ZipCode string `json:"zipCode"`
	} `json:"deliveryInfo"`
	Payment struct {
		Method            string `json:"method"`
		CardNumber        string `json:"cardNumber"`
		CardHolderName    string `json:"cardHolderName"`
		ExpiryDate        string `json:"expiryDate"`
		CVV               string `json:"cvv"`
		MobileMoneyNumber string `json:"mobileMoneyNumber"`
	} `json:"paymentDetails"`
}

type orderResponse struct {
	ID               string             `json:"id"`
	Items            []cart.LineItem    `json:"items"`
	TotalAmount      decimal.Decimal    `json:"totalAmount"`
	Status           string             `json:"status"`
	Delivery         order.DeliveryInfo `json:"deliveryInfo"`
	Payment          order.PaymentInfo  `json:"paymentInfo"`
	ExpectedDelivery *time.Time         `json:"expectedDeliveryDate,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := o.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return orderResponse{
		ID:               o.ID,
		Items:            items,
		TotalAmount:      o.TotalAmount,
		Status:           string(o.Status),
		Delivery:         o.Delivery,
		Payment:          o.Payment,
		ExpectedDelivery: o.ExpectedDelivery,
		CreatedAt:        o.CreatedAt,
	}
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, userID string) {
	var req checkoutRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Delivery.Address == "" || req.Delivery.City == "" || req.Delivery.Country == "" {
		badRequest(w, "delivery address, city and country are required")
		return
	}

	o, err := h.orders.Checkout(r.Context(), userID, order.CheckoutRequest{
		Delivery: order.DeliveryInfo{
			Address: req.Delivery.Address,
			City:    req.Delivery.City,
			Country: req.Delivery.Country,
			ZipCode: req.Delivery.ZipCode,
		},
		Payment: order.PaymentDetails{
			Method:            order.PaymentMethod(req.Payment.Method),
			CardNumber:        req.Payment.CardNumber,
			CardHolderName:    req.Payment.CardHolderName,
			ExpiryDate:        req.Payment.ExpiryDate,
			CVV:               req.Payment.CVV,
			MobileMoneyNumber: req.Payment.MobileMoneyNumber,
		},
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, userID string) {
	o, err := h.orders.Get(r.Context(), userID, r.PathValue("orderID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, userID string) {
	orders, err := h.orders.List(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}
