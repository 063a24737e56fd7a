// Package payment integrates the Stripe hosted checkout flow: session
// creation on the way out, signed webhooks on the way back.
package payment

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/modastyle/backend/internal/checkout"
	"github.com/modastyle/backend/internal/config"
	"github.com/modastyle/backend/internal/order"
)

type StripeGateway struct {
	currency  string
	publicURL string
}

func NewStripeGateway(cfg config.StripeConfig, publicURL string) *StripeGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{
		currency:  cfg.Currency,
		publicURL: publicURL,
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, o *order.Order, images map[uuid.UUID]string) (*checkout.Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(o.Items))
	for _, item := range o.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Nombre),
			Metadata: map[string]string{
				"producto_id": item.ProductoID.String(),
				"talla":       item.Talla,
				"color":       item.Color,
			},
		}
		if item.VarianteID != nil {
			productData.Metadata["variante_id"] = item.VarianteID.String()
		}
		if img := images[item.ProductoID]; img != "" {
			productData.Images = stripe.StringSlice([]string{img})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Cantidad)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				UnitAmount:  stripe.Int64(item.Precio),
				ProductData: productData,
			},
		})
	}

	shippingName := "Envío estándar"
	if o.Envio == 0 {
		shippingName = "Envío gratis"
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		CustomerEmail:      stripe.String(o.ClienteEmail),
		SuccessURL: stripe.String(fmt.Sprintf(
			"%s/tienda/pago-exitoso?session_id={CHECKOUT_SESSION_ID}&pedido_id=%s",
			g.publicURL, o.ID)),
		CancelURL: stripe.String(g.publicURL + "/tienda/carrito"),
		Metadata: map[string]string{
			"pedido_id": o.ID.String(),
		},
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
					Type:        stripe.String("fixed_amount"),
					DisplayName: stripe.String(shippingName),
					FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(o.Envio),
						Currency: stripe.String(g.currency),
					},
				},
			},
		},
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	return &checkout.Session{ID: s.ID, URL: s.URL}, nil
}
