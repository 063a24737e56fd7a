package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modastyle/backend/internal/order"
	"github.com/modastyle/backend/internal/payment"
)

const testSecret = "whsec_test_secret"

// signPayload builds the Stripe-Signature header the way the gateway does:
// an HMAC-SHA256 of "<timestamp>.<payload>" keyed with the endpoint secret.
func signPayload(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type mockOrderRepo struct {
	order.Repository
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	getByPaymentIDFunc   func(ctx context.Context, paymentID string) (*order.Order, error)
	setPaymentStatusFunc func(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error
	markPaidFunc         func(ctx context.Context, id uuid.UUID, paymentID string) (bool, error)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockOrderRepo) GetByPaymentID(ctx context.Context, paymentID string) (*order.Order, error) {
	return m.getByPaymentIDFunc(ctx, paymentID)
}

func (m *mockOrderRepo) SetPaymentStatus(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error {
	return m.setPaymentStatusFunc(ctx, id, status)
}

func (m *mockOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
	return m.markPaidFunc(ctx, id, paymentID)
}

type mockNotifier struct {
	confirmations []string
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	m.confirmations = append(m.confirmations, o.NumeroPedido)
	return nil
}

func (m *mockNotifier) SendShippingNotification(ctx context.Context, o *order.Order) error {
	return nil
}

func sessionCompletedPayload(pedidoID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"payment_intent": "pi_test_1",
				"metadata": {"pedido_id": "%s"}
			}
		}
	}`, pedidoID))
}

func TestProcessor_HandleEvent_InvalidSignature(t *testing.T) {
	processor := payment.NewProcessor(&mockOrderRepo{}, nil, testSecret)

	payload := sessionCompletedPayload(uuid.Must(uuid.NewV4()))

	err := processor.HandleEvent(context.Background(), payload, "t=123,v1=deadbeef")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)

	err = processor.HandleEvent(context.Background(), payload, "")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestProcessor_HandleEvent_SessionCompleted(t *testing.T) {
	pedidoID := uuid.Must(uuid.NewV4())

	var markedID uuid.UUID
	var markedPaymentID string
	repo := &mockOrderRepo{
		markPaidFunc: func(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
			markedID = id
			markedPaymentID = paymentID
			return true, nil
		},
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: id, NumeroPedido: "PED-1-abcd", ClienteEmail: "ana@example.com"}, nil
		},
	}
	notifier := &mockNotifier{}
	processor := payment.NewProcessor(repo, notifier, testSecret)

	payload := sessionCompletedPayload(pedidoID)
	err := processor.HandleEvent(context.Background(), payload, signPayload(payload))
	require.NoError(t, err)

	assert.Equal(t, pedidoID, markedID)
	assert.Equal(t, "pi_test_1", markedPaymentID)
	assert.Equal(t, []string{"PED-1-abcd"}, notifier.confirmations)
}

func TestProcessor_HandleEvent_Redelivery(t *testing.T) {
	pedidoID := uuid.Must(uuid.NewV4())

	calls := 0
	repo := &mockOrderRepo{
		markPaidFunc: func(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
			calls++
			// Already PAGADO: the conditional update did not apply.
			return false, nil
		},
	}
	notifier := &mockNotifier{}
	processor := payment.NewProcessor(repo, notifier, testSecret)

	payload := sessionCompletedPayload(pedidoID)
	err := processor.HandleEvent(context.Background(), payload, signPayload(payload))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Empty(t, notifier.confirmations, "redelivery must not notify again")
}

func TestProcessor_HandleEvent_UnknownOrderAcked(t *testing.T) {
	repo := &mockOrderRepo{
		markPaidFunc: func(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
			return false, order.ErrOrderNotFound
		},
	}
	processor := payment.NewProcessor(repo, nil, testSecret)

	payload := sessionCompletedPayload(uuid.Must(uuid.NewV4()))
	err := processor.HandleEvent(context.Background(), payload, signPayload(payload))
	assert.NoError(t, err)
}

func TestProcessor_HandleEvent_SessionExpired(t *testing.T) {
	pedidoID := uuid.Must(uuid.NewV4())

	expiredPayload := func() []byte {
		return []byte(fmt.Sprintf(`{
			"id": "evt_2",
			"type": "checkout.session.expired",
			"data": {
				"object": {
					"id": "cs_test_2",
					"object": "checkout.session",
					"metadata": {"pedido_id": "%s"}
				}
			}
		}`, pedidoID))
	}

	t.Run("pending_order_marked_failed", func(t *testing.T) {
		var setStatus order.PaymentStatus
		repo := &mockOrderRepo{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: id, EstadoPago: order.PaymentPendiente}, nil
			},
			setPaymentStatusFunc: func(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error {
				setStatus = status
				return nil
			},
		}
		processor := payment.NewProcessor(repo, nil, testSecret)

		payload := expiredPayload()
		err := processor.HandleEvent(context.Background(), payload, signPayload(payload))
		require.NoError(t, err)
		assert.Equal(t, order.PaymentFallido, setStatus)
	})

	t.Run("paid_order_untouched", func(t *testing.T) {
		statusSet := false
		repo := &mockOrderRepo{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: id, EstadoPago: order.PaymentPagado}, nil
			},
			setPaymentStatusFunc: func(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error {
				statusSet = true
				return nil
			},
		}
		processor := payment.NewProcessor(repo, nil, testSecret)

		payload := expiredPayload()
		err := processor.HandleEvent(context.Background(), payload, signPayload(payload))
		require.NoError(t, err)
		assert.False(t, statusSet)
	})
}

func TestProcessor_HandleEvent_PaymentFailed(t *testing.T) {
	pedidoID := uuid.Must(uuid.NewV4())

	var setStatus order.PaymentStatus
	repo := &mockOrderRepo{
		getByPaymentIDFunc: func(ctx context.Context, paymentID string) (*order.Order, error) {
			assert.Equal(t, "pi_test_9", paymentID)
			return &order.Order{ID: pedidoID}, nil
		},
		setPaymentStatusFunc: func(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error {
			assert.Equal(t, pedidoID, id)
			setStatus = status
			return nil
		},
	}
	processor := payment.NewProcessor(repo, nil, testSecret)

	payload := []byte(`{
		"id": "evt_3",
		"type": "payment_intent.payment_failed",
		"data": {
			"object": {
				"id": "pi_test_9",
				"object": "payment_intent"
			}
		}
	}`)
	err := processor.HandleEvent(context.Background(), payload, signPayload(payload))
	require.NoError(t, err)
	assert.Equal(t, order.PaymentFallido, setStatus)
}

func TestProcessor_HandleEvent_IgnoredEvent(t *testing.T) {
	processor := payment.NewProcessor(&mockOrderRepo{}, nil, testSecret)

	payload := []byte(`{
		"id": "evt_4",
		"type": "customer.created",
		"data": {"object": {"id": "cus_1", "object": "customer"}}
	}`)
	err := processor.HandleEvent(context.Background(), payload, signPayload(payload))
	assert.NoError(t, err)
}
