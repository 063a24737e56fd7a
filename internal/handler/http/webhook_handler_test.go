package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/modastyle/backend/internal/handler/http"
	"github.com/modastyle/backend/internal/order"
	"github.com/modastyle/backend/internal/payment"
)

const webhookTestSecret = "whsec_handler_test"

type stubOrderRepo struct {
	order.Repository
	markPaidFunc func(ctx context.Context, id uuid.UUID, paymentID string) (bool, error)
	getByIDFunc  func(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

func (s *stubOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
	return s.markPaidFunc(ctx, id, paymentID)
}

func (s *stubOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.getByIDFunc(ctx, id)
}

func stripeSignature(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func webhookRouter(repo order.Repository) chi.Router {
	processor := payment.NewProcessor(repo, nil, webhookTestSecret)
	router := chi.NewRouter()
	handler.NewWebhookHandler(processor).RegisterRoutes(router)
	return router
}

func TestWebhookHandler_ValidEvent(t *testing.T) {
	pedidoID := uuid.Must(uuid.NewV4())

	marked := false
	repo := &stubOrderRepo{
		markPaidFunc: func(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
			marked = true
			assert.Equal(t, pedidoID, id)
			return true, nil
		},
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: id}, nil
		},
	}

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "object": "checkout.session", "metadata": {"pedido_id": "%s"}}}
	}`, pedidoID))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBuffer(payload))
	req.Header.Set("Stripe-Signature", stripeSignature(payload))
	rr := httptest.NewRecorder()
	webhookRouter(repo).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received": true}`, rr.Body.String())
	assert.True(t, marked)
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	repo := &stubOrderRepo{
		markPaidFunc: func(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
			t.Fatal("must not touch orders on a bad signature")
			return false, nil
		},
	}

	payload := []byte(`{"id": "evt_1", "type": "checkout.session.completed", "data": {"object": {}}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBuffer(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=ffff")
	rr := httptest.NewRecorder()
	webhookRouter(repo).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
