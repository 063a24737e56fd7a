package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/checkout"
	"github.com/modastyle/backend/internal/order"
)

type CheckoutItemRequest struct {
	ID       string `json:"id" validate:"required,uuid4"`
	Cantidad int    `json:"cantidad" validate:"required,gt=0"`
	Talla    string `json:"talla"`
	Color    string `json:"color"`
	Imagen   string `json:"imagen"`
	// Display fields the cart sends along are accepted but never trusted;
	// the catalog rows win.
	Nombre     string `json:"nombre"`
	Precio     int64  `json:"precio"`
	Stock      int    `json:"stock"`
	VarianteID string `json:"varianteId"`
}

// CheckoutRequest matches the storefront checkout form payload, which uses
// English keys for the customer and shipping blocks.
type CheckoutRequest struct {
	Items    []CheckoutItemRequest `json:"items" validate:"required,min=1,dive"`
	Customer struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"required,min=2"`
		Phone string `json:"phone"`
	} `json:"customer"`
	ShippingAddress struct {
		Line1      string `json:"line1" validate:"required"`
		Line2      string `json:"line2"`
		City       string `json:"city" validate:"required"`
		State      string `json:"state"`
		PostalCode string `json:"postal_code"`
		Country    string `json:"country" validate:"required"`
	} `json:"shippingAddress"`
}

type CheckoutHandler struct {
	service  checkout.Service
	validate *validator.Validate
}

func NewCheckoutHandler(service checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{service: service, validate: validator.New()}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Post("/pagos/crear-sesion", h.handleCreateSession)
}

func (h *CheckoutHandler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var requestPayload CheckoutRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode checkout request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	input := checkout.Input{
		Customer: checkout.Customer{
			Email: requestPayload.Customer.Email,
			Name:  requestPayload.Customer.Name,
			Phone: requestPayload.Customer.Phone,
		},
		ShippingAddress: order.ShippingAddress{
			Line1:      requestPayload.ShippingAddress.Line1,
			Line2:      requestPayload.ShippingAddress.Line2,
			City:       requestPayload.ShippingAddress.City,
			State:      requestPayload.ShippingAddress.State,
			PostalCode: requestPayload.ShippingAddress.PostalCode,
			Country:    requestPayload.ShippingAddress.Country,
		},
	}
	for _, item := range requestPayload.Items {
		id, err := uuid.FromString(item.ID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid product id in cart")
			return
		}
		input.Items = append(input.Items, checkout.CartItem{
			ID:       id,
			Cantidad: item.Cantidad,
			Talla:    item.Talla,
			Color:    item.Color,
			Imagen:   item.Imagen,
		})
	}

	result, err := h.service.CreateSession(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create checkout session")
		respondWithError(w, mapErrorToStatusCode(err), checkoutClientMessage(err))
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func checkoutClientMessage(err error) string {
	switch {
	case errors.Is(err, checkout.ErrCartEmpty):
		return "El carrito está vacío"
	case errors.Is(err, checkout.ErrProductNotFound):
		return "Producto no encontrado"
	case errors.Is(err, checkout.ErrOutOfStock):
		return err.Error()
	case errors.Is(err, checkout.ErrPaymentGateway):
		return "Error al procesar el pago"
	default:
		return "Error al crear la sesión de pago"
	}
}
