package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/catalog"
	"github.com/modastyle/backend/internal/order"
)

var (
	ErrCartEmpty       = errors.New("cart is empty")
	ErrProductNotFound = errors.New("product not found")
	ErrOutOfStock      = errors.New("insufficient stock")
	ErrPaymentGateway  = errors.New("payment gateway error")
)

// CartItem is one checkout line as submitted by the client. Price and stock
// are never taken from it; the catalog rows are authoritative.
type CartItem struct {
	ID       uuid.UUID
	Cantidad int
	Talla    string
	Color    string
	Imagen   string
}

type Customer struct {
	Email string
	Name  string
	Phone string
}

type Input struct {
	Items           []CartItem
	Customer        Customer
	ShippingAddress order.ShippingAddress
}

type Result struct {
	SessionID string `json:"sessionId"`
	PedidoID  string `json:"pedidoId"`
	URL       string `json:"url"`
}

// Session is a hosted payment session created by the external gateway.
type Session struct {
	ID  string
	URL string
}

// Gateway requests hosted payment sessions from the payment processor. The
// order ID travels as opaque metadata so the webhook can correlate the result.
type Gateway interface {
	CreateSession(ctx context.Context, o *order.Order, images map[uuid.UUID]string) (*Session, error)
}

type ShippingPolicy struct {
	FlatFee       int64
	FreeThreshold int64
}

// Fee returns the shipping cost for a subtotal: a flat fee, waived above the
// free-shipping threshold.
func (p ShippingPolicy) Fee(subtotal int64) int64 {
	if subtotal > p.FreeThreshold {
		return 0
	}
	return p.FlatFee
}

type Service interface {
	CreateSession(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	catalogRepo catalog.Repository
	orderRepo   order.Repository
	gateway     Gateway
	shipping    ShippingPolicy
}

func NewService(catalogRepo catalog.Repository, orderRepo order.Repository, gateway Gateway, shipping ShippingPolicy) Service {
	return &service{
		catalogRepo: catalogRepo,
		orderRepo:   orderRepo,
		gateway:     gateway,
		shipping:    shipping,
	}
}

func (s *service) CreateSession(ctx context.Context, input Input) (*Result, error) {
	if len(input.Items) == 0 {
		return nil, ErrCartEmpty
	}

	var items []order.Item
	images := make(map[uuid.UUID]string)
	var subtotal int64

	for _, line := range input.Items {
		if line.Cantidad <= 0 {
			return nil, fmt.Errorf("service: quantity for product %s must be greater than zero", line.ID)
		}

		producto, err := s.catalogRepo.GetProductByID(ctx, line.ID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ID)
			}
			return nil, fmt.Errorf("service: failed to fetch product %s: %w", line.ID, err)
		}

		if producto.Stock < line.Cantidad {
			return nil, fmt.Errorf("%w: %s (disponible: %d)", ErrOutOfStock, producto.Nombre, producto.Stock)
		}

		precio := producto.Precio
		var varianteID *uuid.UUID
		if line.Talla != "" || line.Color != "" {
			if variante := producto.FindVariant(line.Talla, line.Color); variante != nil {
				if variante.Stock < line.Cantidad {
					return nil, fmt.Errorf("%w: %s %s/%s (disponible: %d)",
						ErrOutOfStock, producto.Nombre, line.Talla, line.Color, variante.Stock)
				}
				precio = variante.Precio
				varianteID = &variante.ID
			}
		}

		items = append(items, order.Item{
			ProductoID: producto.ID,
			VarianteID: varianteID,
			Nombre:     producto.Nombre,
			Precio:     precio,
			Cantidad:   line.Cantidad,
			Subtotal:   precio * int64(line.Cantidad),
			Talla:      line.Talla,
			Color:      line.Color,
		})
		images[producto.ID] = line.Imagen
		subtotal += precio * int64(line.Cantidad)
	}

	envio := s.shipping.Fee(subtotal)

	o := &order.Order{
		NumeroPedido:    order.NewOrderNumber(),
		ClienteEmail:    input.Customer.Email,
		ClienteNombre:   input.Customer.Name,
		ClienteTelefono: input.Customer.Phone,
		DireccionEnvio:  input.ShippingAddress,
		Subtotal:        subtotal,
		Envio:           envio,
		Total:           subtotal + envio,
		EstadoPedido:    order.StatusPendiente,
		EstadoPago:      order.PaymentPendiente,
		MetodoPago:      "TARJETA",
		Items:           items,
	}

	if err := s.orderRepo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	session, err := s.gateway.CreateSession(ctx, o, images)
	if err != nil {
		// The pending order is kept for later reconciliation or manual cleanup.
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: payment session creation failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	if err := s.orderRepo.SetSessionID(ctx, o.ID, session.ID); err != nil {
		return nil, fmt.Errorf("service: failed to persist session id: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Str("numero_pedido", o.NumeroPedido).
		Int64("total", o.Total).Msg("service: checkout session created")

	return &Result{
		SessionID: session.ID,
		PedidoID:  o.ID.String(),
		URL:       session.URL,
	}, nil
}
