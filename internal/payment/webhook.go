package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/modastyle/backend/internal/order"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Processor applies payment-outcome events to orders. The gateway delivers
// events at least once, so every handler here must be safe to re-run.
type Processor struct {
	orders   order.Repository
	notifier order.Notifier
	secret   string
}

func NewProcessor(orders order.Repository, notifier order.Notifier, webhookSecret string) *Processor {
	return &Processor{orders: orders, notifier: notifier, secret: webhookSecret}
}

// HandleEvent verifies the signature against the shared secret before trusting
// any payload content, then dispatches on event kind. It returns
// ErrInvalidSignature on mismatch; any other outcome acknowledges the event so
// the gateway stops retrying.
func (p *Processor) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, p.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Warn().Err(err).Msg("webhook: signature verification failed")
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return p.handleSessionCompleted(ctx, event)
	case stripe.EventTypeCheckoutSessionExpired:
		return p.handleSessionExpired(ctx, event)
	case stripe.EventTypePaymentIntentPaymentFailed:
		return p.handlePaymentFailed(ctx, event)
	case stripe.EventTypePaymentIntentSucceeded:
		log.Debug().Str("event_id", event.ID).Msg("webhook: payment intent succeeded")
		return nil
	default:
		log.Debug().Str("event_type", string(event.Type)).Msg("webhook: event ignored")
		return nil
	}
}

func (p *Processor) handleSessionCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("webhook: failed to parse checkout session")
		return nil
	}

	pedidoID, ok := orderIDFromMetadata(session.Metadata)
	if !ok {
		log.Error().Str("session_id", session.ID).Msg("webhook: no pedido_id in session metadata")
		return nil
	}

	paymentID := ""
	if session.PaymentIntent != nil {
		paymentID = session.PaymentIntent.ID
	}

	applied, err := p.orders.MarkPaid(ctx, pedidoID, paymentID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			log.Warn().Stringer("order_id", pedidoID).Msg("webhook: order not found, acknowledging anyway")
			return nil
		}
		return fmt.Errorf("webhook: failed to mark order paid: %w", err)
	}
	if !applied {
		log.Info().Stringer("order_id", pedidoID).Msg("webhook: order already processed, redelivery skipped")
		return nil
	}

	log.Info().Stringer("order_id", pedidoID).Msg("webhook: order paid, stock decremented")

	if p.notifier != nil {
		o, err := p.orders.GetByID(ctx, pedidoID)
		if err == nil {
			if err := p.notifier.SendOrderConfirmation(ctx, o); err != nil {
				log.Error().Err(err).Stringer("order_id", pedidoID).
					Msg("webhook: failed to send order confirmation")
			}
		}
	}
	return nil
}

func (p *Processor) handleSessionExpired(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("webhook: failed to parse checkout session")
		return nil
	}

	pedidoID, ok := orderIDFromMetadata(session.Metadata)
	if !ok {
		return nil
	}

	o, err := p.orders.GetByID(ctx, pedidoID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", pedidoID).Msg("webhook: order lookup failed on expiry")
		return nil
	}
	// Expiry only applies while the payment is still outstanding.
	if o.EstadoPago != order.PaymentPendiente {
		return nil
	}

	if err := p.orders.SetPaymentStatus(ctx, pedidoID, order.PaymentFallido); err != nil {
		return fmt.Errorf("webhook: failed to mark order failed: %w", err)
	}
	log.Info().Stringer("order_id", pedidoID).Msg("webhook: checkout session expired, payment failed")
	return nil
}

func (p *Processor) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("webhook: failed to parse payment intent")
		return nil
	}

	o, err := p.orders.GetByPaymentID(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			log.Warn().Str("payment_id", intent.ID).Msg("webhook: no order for failed payment intent")
			return nil
		}
		return fmt.Errorf("webhook: failed to look up order by payment id: %w", err)
	}

	if err := p.orders.SetPaymentStatus(ctx, o.ID, order.PaymentFallido); err != nil {
		return fmt.Errorf("webhook: failed to mark order failed: %w", err)
	}
	log.Info().Stringer("order_id", o.ID).Str("payment_id", intent.ID).Msg("webhook: payment failed")
	return nil
}

func orderIDFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	raw, ok := metadata["pedido_id"]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Error().Str("pedido_id", raw).Msg("webhook: malformed pedido_id in metadata")
		return uuid.Nil, false
	}
	return id, true
}
