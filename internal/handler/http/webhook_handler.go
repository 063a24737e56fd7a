package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/payment"
)

// Stripe caps event payloads at 64KB; anything larger is not a real event.
const maxWebhookBody = 65536

type WebhookHandler struct {
	processor *payment.Processor
}

func NewWebhookHandler(processor *payment.Processor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

func (h *WebhookHandler) RegisterRoutes(router chi.Router) {
	router.Post("/webhooks/stripe", h.handleStripeWebhook)
}

func (h *WebhookHandler) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read webhook body")
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	err = h.processor.HandleEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			respondWithError(w, http.StatusBadRequest, "Invalid signature")
			return
		}
		// Non-signature failures are retryable on the gateway side.
		log.Error().Err(err).Msg("Failed to process webhook event")
		respondWithError(w, http.StatusInternalServerError, "Failed to process event")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}
