package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

// stripeWebhook verifies the event signature and settles the referenced
// order. Unknown event types are acknowledged so Stripe stops retrying them.
func (h *Handler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		badRequest(w, "read payload")
		return
	}

	ev, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		zctx.From(r.Context()).Warn("webhook signature rejected", zap.Error(err))
		badRequest(w, "invalid signature")
		return
	}

	if err := h.stripe.HandleEvent(r.Context(), ev); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
