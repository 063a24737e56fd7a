package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/order"
)

type UpdateOrderRequest struct {
	EstadoPedido   *string    `json:"estadoPedido" validate:"omitempty,oneof=PENDIENTE PROCESANDO ENVIADO ENTREGADO CANCELADO"`
	EstadoPago     *string    `json:"estadoPago" validate:"omitempty,oneof=PENDIENTE PAGADO FALLIDO REEMBOLSADO"`
	TrackingNumber *string    `json:"trackingNumber"`
	Notas          *string    `json:"notas"`
	FechaEnvio     *time.Time `json:"fechaEnvio"`
}

type OrderListResponse struct {
	Pedidos    []order.Order   `json:"pedidos"`
	Stats      order.ListStats `json:"stats"`
	Pagination Pagination      `json:"pagination"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{service: service, validate: validator.New()}
}

func (h *OrderHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/pedidos", h.handleListOrders)
	router.Get("/pedidos/{id}", h.handleGetOrder)
	router.Put("/pedidos/{id}", h.handleUpdateOrder)
	router.Patch("/pedidos/{id}", h.handleUpdateOrder)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilterFromQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	pedidos, total, stats, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders")
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to list orders"))
		return
	}

	respondWithJSON(w, http.StatusOK, OrderListResponse{
		Pedidos:    pedidos,
		Stats:      stats,
		Pagination: NewPagination(total, filter.Page, filter.Limit),
	})
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	pedido, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to get order"))
		return
	}
	respondWithJSON(w, http.StatusOK, pedido)
}

func (h *OrderHandler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	params := order.UpdateParams{
		TrackingNumber: requestPayload.TrackingNumber,
		Notas:          requestPayload.Notas,
		FechaEnvio:     requestPayload.FechaEnvio,
	}
	if requestPayload.EstadoPedido != nil {
		estado := order.Status(*requestPayload.EstadoPedido)
		params.EstadoPedido = &estado
	}
	if requestPayload.EstadoPago != nil {
		estado := order.PaymentStatus(*requestPayload.EstadoPago)
		params.EstadoPago = &estado
	}

	updated, err := h.service.UpdateStatus(r.Context(), id, params)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", id).Msg("Failed to update order")
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to update order"))
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func orderFilterFromQuery(r *http.Request) (order.ListFilter, error) {
	q := r.URL.Query()
	filter := order.ListFilter{
		Estado: order.Status(q.Get("estado")),
		Search: q.Get("buscar"),
	}

	if raw := q.Get("fechaInicio"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errInvalidQueryParam("fechaInicio")
		}
		filter.FechaInicio = &t
	}
	if raw := q.Get("fechaFin"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errInvalidQueryParam("fechaFin")
		}
		// Inclusive upper bound: the whole named day counts.
		end := t.AddDate(0, 0, 1)
		filter.FechaFin = &end
	}
	if raw := q.Get("page"); raw != "" {
		filter.Page, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	return filter, nil
}
