package order_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modastyle/backend/internal/order"
)

type mockOrderRepository struct {
	createFunc           func(ctx context.Context, o *order.Order) error
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	getByPaymentIDFunc   func(ctx context.Context, paymentID string) (*order.Order, error)
	listFunc             func(ctx context.Context, filter order.ListFilter) ([]order.Order, int, order.ListStats, error)
	updateFunc           func(ctx context.Context, id uuid.UUID, params order.UpdateParams) error
	setSessionIDFunc     func(ctx context.Context, id uuid.UUID, sessionID string) error
	setPaymentStatusFunc func(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error
	markPaidFunc         func(ctx context.Context, id uuid.UUID, paymentID string) (bool, error)
}

func (m *mockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return m.createFunc(ctx, o)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockOrderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*order.Order, error) {
	return m.getByPaymentIDFunc(ctx, paymentID)
}

func (m *mockOrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int, order.ListStats, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockOrderRepository) Update(ctx context.Context, id uuid.UUID, params order.UpdateParams) error {
	return m.updateFunc(ctx, id, params)
}

func (m *mockOrderRepository) SetSessionID(ctx context.Context, id uuid.UUID, sessionID string) error {
	return m.setSessionIDFunc(ctx, id, sessionID)
}

func (m *mockOrderRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error {
	return m.setPaymentStatusFunc(ctx, id, status)
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
	return m.markPaidFunc(ctx, id, paymentID)
}

type mockNotifier struct {
	confirmations []string
	shipments     []string
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	m.confirmations = append(m.confirmations, o.NumeroPedido)
	return nil
}

func (m *mockNotifier) SendShippingNotification(ctx context.Context, o *order.Order) error {
	m.shipments = append(m.shipments, o.NumeroPedido)
	return nil
}

type mockMetrics struct {
	delivered []string
}

func (m *mockMetrics) RecordDelivered(o *order.Order) {
	m.delivered = append(m.delivered, o.NumeroPedido)
}

func statusPtr(s order.Status) *order.Status          { return &s }
func paymentPtr(s order.PaymentStatus) *order.PaymentStatus { return &s }

func TestOrderService_UpdateStatus(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name           string
		current        order.Order
		params         order.UpdateParams
		wantErrIs      error
		wantUpdated    bool
		wantShipment   bool
		wantDelivered  bool
		wantFechaEnvio bool
	}{
		{
			name:        "pendiente_to_procesando",
			current:     order.Order{ID: orderID, EstadoPedido: order.StatusPendiente, EstadoPago: order.PaymentPagado},
			params:      order.UpdateParams{EstadoPedido: statusPtr(order.StatusProcesando)},
			wantUpdated: true,
		},
		{
			name:      "pendiente_to_entregado_rejected",
			current:   order.Order{ID: orderID, EstadoPedido: order.StatusPendiente, EstadoPago: order.PaymentPagado},
			params:    order.UpdateParams{EstadoPedido: statusPtr(order.StatusEntregado)},
			wantErrIs: order.ErrInvalidStatusTransition,
		},
		{
			name:      "entregado_is_terminal",
			current:   order.Order{ID: orderID, EstadoPedido: order.StatusEntregado, EstadoPago: order.PaymentPagado},
			params:    order.UpdateParams{EstadoPedido: statusPtr(order.StatusCancelado)},
			wantErrIs: order.ErrInvalidStatusTransition,
		},
		{
			name:      "unknown_status_rejected",
			current:   order.Order{ID: orderID, EstadoPedido: order.StatusPendiente},
			params:    order.UpdateParams{EstadoPedido: statusPtr(order.Status("DESPACHADO"))},
			wantErrIs: order.ErrInvalidStatus,
		},
		{
			name:        "same_status_is_noop",
			current:     order.Order{ID: orderID, EstadoPedido: order.StatusProcesando},
			params:      order.UpdateParams{EstadoPedido: statusPtr(order.StatusProcesando)},
			wantUpdated: true,
		},
		{
			name:           "procesando_to_enviado_notifies",
			current:        order.Order{ID: orderID, EstadoPedido: order.StatusProcesando, EstadoPago: order.PaymentPagado, ClienteEmail: "ana@example.com"},
			params:         order.UpdateParams{EstadoPedido: statusPtr(order.StatusEnviado)},
			wantUpdated:    true,
			wantShipment:   true,
			wantFechaEnvio: true,
		},
		{
			name:          "enviado_to_entregado_records_metric",
			current:       order.Order{ID: orderID, EstadoPedido: order.StatusEnviado, EstadoPago: order.PaymentPagado},
			params:        order.UpdateParams{EstadoPedido: statusPtr(order.StatusEntregado)},
			wantUpdated:   true,
			wantDelivered: true,
		},
		{
			name:      "pagado_to_pendiente_rejected",
			current:   order.Order{ID: orderID, EstadoPedido: order.StatusProcesando, EstadoPago: order.PaymentPagado},
			params:    order.UpdateParams{EstadoPago: paymentPtr(order.PaymentPendiente)},
			wantErrIs: order.ErrInvalidStatusTransition,
		},
		{
			name:        "pagado_to_reembolsado",
			current:     order.Order{ID: orderID, EstadoPedido: order.StatusProcesando, EstadoPago: order.PaymentPagado},
			params:      order.UpdateParams{EstadoPago: paymentPtr(order.PaymentReembolsado)},
			wantUpdated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := tt.current
			updated := false
			var appliedParams order.UpdateParams

			mockRepo := &mockOrderRepository{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
					return &current, nil
				},
				updateFunc: func(ctx context.Context, id uuid.UUID, params order.UpdateParams) error {
					updated = true
					appliedParams = params
					if params.EstadoPedido != nil {
						current.EstadoPedido = *params.EstadoPedido
					}
					if params.EstadoPago != nil {
						current.EstadoPago = *params.EstadoPago
					}
					return nil
				},
			}
			notifier := &mockNotifier{}
			metrics := &mockMetrics{}
			svc := order.NewService(mockRepo, notifier, metrics)

			_, err := svc.UpdateStatus(context.Background(), orderID, tt.params)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				assert.False(t, updated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUpdated, updated)
			assert.Equal(t, tt.wantShipment, len(notifier.shipments) == 1)
			assert.Equal(t, tt.wantDelivered, len(metrics.delivered) == 1)
			if tt.wantFechaEnvio {
				assert.NotNil(t, appliedParams.FechaEnvio)
			}
		})
	}
}

func TestOrderService_List_InvalidStatus(t *testing.T) {
	svc := order.NewService(&mockOrderRepository{}, nil, nil)

	_, _, _, err := svc.List(context.Background(), order.ListFilter{Estado: order.Status("RARO")})
	assert.ErrorIs(t, err, order.ErrInvalidStatus)
}

func TestNewOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^PED-\d{13}-[0-9a-f]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n := order.NewOrderNumber()
		assert.Regexp(t, pattern, n)
		assert.False(t, seen[n], "order numbers must not repeat: %s", n)
		seen[n] = true
	}
}
