package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fooddelivery/payment-service/internal/core"
	"github.com/fooddelivery/payment-service/internal/core/webhook"
	"github.com/fooddelivery/payment-service/internal/port/input"
)

type fakeService struct {
	input.PaymentService

	createFn func(ctx context.Context, req input.CreatePaymentRequest) (*core.Payment, error)
	eventFn  func(ctx context.Context, event webhook.Event) error
	events   []webhook.Event
}

func (f *fakeService) CreatePayment(ctx context.Context, req input.CreatePaymentRequest) (*core.Payment, error) {
	return f.createFn(ctx, req)
}

func (f *fakeService) HandleGatewayEvent(ctx context.Context, event webhook.Event) error {
	f.events = append(f.events, event)
	if f.eventFn != nil {
		return f.eventFn(ctx, event)
	}
	return nil
}

const testSecret = "whsec_test"

func newTestHandler(svc *fakeService) *PaymentHandler {
	return NewPaymentHandler(svc, webhook.NewVerifier(testSecret), zap.NewNop())
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, h *PaymentHandler, payload, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h.GatewayWebhook(e.NewContext(req, rec)))
	return rec
}

func TestGatewayWebhook(t *testing.T) {
	payload := `{"type":"charge.succeeded","intent_id":"pi_1","charge_id":"ch_1"}`

	t.Run("verified event reaches the engine", func(t *testing.T) {
		svc := &fakeService{}
		rec := postWebhook(t, newTestHandler(svc), payload, sign([]byte(payload)))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, svc.events, 1)
		assert.Equal(t, webhook.EventChargeSucceeded, svc.events[0].Type)
		assert.Equal(t, "pi_1", svc.events[0].IntentID)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["received"])
	})

	t.Run("invalid signature never reaches the engine", func(t *testing.T) {
		svc := &fakeService{}
		rec := postWebhook(t, newTestHandler(svc), payload, sign([]byte("other payload")))

		assert.Equal(t, http.StatusOK, rec.Code, "bad signatures are acked, not hard failures")
		assert.Empty(t, svc.events)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["received"])
	})

	t.Run("missing signature is discarded", func(t *testing.T) {
		svc := &fakeService{}
		rec := postWebhook(t, newTestHandler(svc), payload, "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, svc.events)
	})

	t.Run("signed but unparseable payload is discarded", func(t *testing.T) {
		svc := &fakeService{}
		garbage := `{"type":"something.else","intent_id":"pi_1"}`
		rec := postWebhook(t, newTestHandler(svc), garbage, sign([]byte(garbage)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, svc.events)
	})
}

func TestCreatePaymentErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"validation error", &core.ValidationError{Field: "amount", Reason: "must be greater than zero"}, http.StatusBadRequest},
		{"duplicate payment", core.ErrDuplicatePayment, http.StatusConflict},
		{"gateway error", &core.GatewayError{Op: "create intent", Err: context.DeadlineExceeded, Ambiguous: true}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				createFn: func(context.Context, input.CreatePaymentRequest) (*core.Payment, error) {
					return nil, tt.serviceErr
				},
			}
			h := newTestHandler(svc)

			e := echo.New()
			body := `{"order_id":"O1","customer_id":"C1","amount":25.50,"currency":"USD"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			require.NoError(t, h.CreatePayment(e.NewContext(req, rec)))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCreatePaymentSuccess(t *testing.T) {
	payment := &core.Payment{
		ID:         uuid.New(),
		OrderID:    "O1",
		CustomerID: "C1",
		Amount:     core.Money{Amount: decimal.RequireFromString("25.50"), Currency: "USD"},
		Status:     core.PaymentStatusProcessing,
	}
	svc := &fakeService{
		createFn: func(_ context.Context, req input.CreatePaymentRequest) (*core.Payment, error) {
			assert.Equal(t, "O1", req.OrderID)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("25.50")))
			return payment, nil
		},
	}
	h := newTestHandler(svc)

	e := echo.New()
	body := `{"order_id":"O1","customer_id":"C1","amount":25.50,"currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.CreatePayment(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PROCESSING", resp.Status)
	assert.Equal(t, "25.50", resp.Amount)
	assert.Equal(t, "USD", resp.Currency)
}
