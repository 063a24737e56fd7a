package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handler "github.com/modastyle/backend/internal/handler/http"
	"github.com/modastyle/backend/internal/order"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int, order.ListStats, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), order.ListStats{}, args.Error(3)
	}
	return args.Get(0).([]order.Order), args.Int(1), args.Get(2).(order.ListStats), args.Error(3)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, params order.UpdateParams) (*order.Order, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func newOrderRouter(mockService *MockOrderService) chi.Router {
	h := handler.NewOrderHandler(mockService)
	router := chi.NewRouter()
	h.RegisterAdminRoutes(router)
	return router
}

func TestOrderHandler_UpdateOrder_ShippingFields(t *testing.T) {
	mockService := new(MockOrderService)
	pedidoID := uuid.Must(uuid.NewV4())
	fechaEnvio := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	updated := &order.Order{ID: pedidoID, EstadoPedido: order.StatusEnviado}
	mockService.On("UpdateStatus", mock.Anything, pedidoID, mock.MatchedBy(func(p order.UpdateParams) bool {
		return p.EstadoPedido != nil && *p.EstadoPedido == order.StatusEnviado &&
			p.TrackingNumber != nil && *p.TrackingNumber == "CHX-123456" &&
			p.FechaEnvio != nil && p.FechaEnvio.Equal(fechaEnvio)
	})).Return(updated, nil).Once()

	body := []byte(`{
		"estadoPedido": "ENVIADO",
		"trackingNumber": "CHX-123456",
		"fechaEnvio": "2026-08-15T12:00:00Z"
	}`)
	req := httptest.NewRequest(http.MethodPut, "/pedidos/"+pedidoID.String(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	newOrderRouter(mockService).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_UpdateOrder_InvalidStatus(t *testing.T) {
	mockService := new(MockOrderService)
	pedidoID := uuid.Must(uuid.NewV4())

	body := []byte(`{"estadoPedido": "DESPACHADO"}`)
	req := httptest.NewRequest(http.MethodPut, "/pedidos/"+pedidoID.String(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	newOrderRouter(mockService).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertNotCalled(t, "UpdateStatus")
}
