package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kivumart/kivumart-api/internal/domain/cart"
	"github.com/kivumart/kivumart-api/internal/domain/collection"
	"github.com/kivumart/kivumart-api/internal/domain/notification"
	"github.com/kivumart/kivumart-api/internal/domain/order"
	"github.com/kivumart/kivumart-api/internal/domain/product"
	"github.com/kivumart/kivumart-api/internal/domain/user"
	"github.com/kivumart/kivumart-api/internal/domain/wishlist"
	"github.com/kivumart/kivumart-api/internal/event"
	"github.com/kivumart/kivumart-api/internal/payment/momo"
	"github.com/kivumart/kivumart-api/internal/payment/stripe"
	"github.com/kivumart/kivumart-api/internal/repository"
	"github.com/kivumart/kivumart-api/internal/ws"
)

const maxBodySize = 1 << 20

// Handler serves the HTTP API.
type Handler struct {
	carts         *cart.Service
	orders        *order.Service
	momo          *momo.Adapter
	stripe        *stripe.Processor
	products      product.Repository
	collections   collection.Repository
	notifications notification.Repository
	wishlists     wishlist.Repository
	bus           event.Publisher
	hub           *ws.Hub
	auth          *Authenticator
	webhookSecret string
}

// Config carries the Handler's dependencies.
type Config struct {
	Carts         *cart.Service
	Orders        *order.Service
	MoMo          *momo.Adapter
	Stripe        *stripe.Processor
	Products      product.Repository
	Collections   collection.Repository
	Notifications notification.Repository
	Wishlists     wishlist.Repository
	Bus           event.Publisher
	Hub           *ws.Hub
	Auth          *Authenticator
	WebhookSecret string
}

// New creates a Handler from its dependencies.
func New(cfg Config) *Handler {
	return &Handler{
		carts:         cfg.Carts,
		orders:        cfg.Orders,
		momo:          cfg.MoMo,
		stripe:        cfg.Stripe,
		products:      cfg.Products,
		collections:   cfg.Collections,
		notifications: cfg.Notifications,
		wishlists:     cfg.Wishlists,
		bus:           cfg.Bus,
		hub:           cfg.Hub,
		auth:          cfg.Auth,
		webhookSecret: cfg.WebhookSecret,
	}
}

// Register mounts every API route on mux. All routes except the Stripe
// webhook require a bearer token.
func (h *Handler) Register(mux *http.ServeMux) {
	authed := h.auth.Require

	mux.Handle("GET /api/cart", authed(h.getCart))
	mux.Handle("POST /api/cart/items", authed(h.addCartItem))
	mux.Handle("PUT /api/cart/items", authed(h.updateCartItems))
	mux.Handle("DELETE /api/cart/items/{productID}", authed(h.removeCartItem))
	mux.Handle("DELETE /api/cart", authed(h.clearCart))

	mux.Handle("POST /api/orders", authed(h.checkout))
	mux.Handle("GET /api/orders", authed(h.listOrders))
	mux.Handle("GET /api/orders/{orderID}", authed(h.getOrder))

	mux.Handle("POST /api/orders/{orderID}/momo/pay", authed(h.momoPay))
	mux.Handle("GET /api/orders/{orderID}/momo/status", authed(h.momoStatus))
	mux.Handle("POST /api/orders/{orderID}/card/pay", authed(h.cardPay))
	mux.HandleFunc("POST /api/webhooks/stripe", h.stripeWebhook)

	mux.Handle("POST /api/products", authed(h.createProduct))
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{productID}", h.getProduct)

	mux.Handle("POST /api/collections", authed(h.createCollection))
	mux.Handle("GET /api/collections/{collectionID}", authed(h.getCollection))
	mux.Handle("GET /api/collections", authed(h.listCollections))

	mux.Handle("POST /api/wishlist/{productID}", authed(h.addToWishlist))
	mux.Handle("DELETE /api/wishlist/{productID}", authed(h.removeFromWishlist))
	mux.Handle("GET /api/wishlist", authed(h.listWishlist))

	mux.Handle("GET /api/notifications", authed(h.listNotifications))
	mux.Handle("PATCH /api/notifications/{notificationID}", authed(h.markNotificationRead))

	mux.Handle("GET /api/ws", authed(h.serveWS))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

// respondError maps domain errors to HTTP status codes. The mapping treats
// ownership failures on reads as 404 rather than 403 to avoid leaking
// which order IDs exist.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty  *cart.InvalidQuantityError
		outOfStock  *cart.OutOfStockError
		stock       *repository.InsufficientStockError
		stateErr    *order.StateError
		illegalTrns *order.IllegalTransitionError
	)

	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.As(err, &invalidQty),
		errors.As(err, &outOfStock),
		errors.As(err, &stock),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, stripe.ErrNoItems),
		errors.Is(err, momo.ErrNotInitiated):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, stripe.ErrNotOwner):
		status, msg = http.StatusForbidden, err.Error()
	case errors.As(err, &stateErr):
		status, msg = http.StatusNotFound, stateErr.Error()
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrNoActiveCart),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, collection.ErrNotFound),
		errors.Is(err, notification.ErrNotFound),
		errors.Is(err, wishlist.ErrNotInWishlist),
		errors.Is(err, user.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, product.ErrDuplicate),
		errors.Is(err, collection.ErrDuplicate),
		errors.Is(err, order.ErrStatusConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.As(err, &illegalTrns):
		status, msg = http.StatusConflict, illegalTrns.Error()
	}

	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
