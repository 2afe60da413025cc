package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fooddelivery/payment-service/internal/core"
	"github.com/fooddelivery/payment-service/internal/core/webhook"
	"github.com/fooddelivery/payment-service/internal/port/input"
)

// SignatureHeader carries the gateway's hex HMAC over the webhook body.
const SignatureHeader = "X-Gateway-Signature"

// PaymentHandler is a primary adapter (HTTP handler)
type PaymentHandler struct {
	paymentService input.PaymentService
	verifier       *webhook.Verifier
	logger         *zap.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService input.PaymentService, verifier *webhook.Verifier, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		verifier:       verifier,
		logger:         logger,
	}
}

// CreatePaymentRequest represents the HTTP request to create a payment
type CreatePaymentRequest struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// RefundPaymentRequest represents the HTTP request to refund a payment
type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PaymentResponse represents the HTTP response for a payment
type PaymentResponse struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	CustomerID      string `json:"customer_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	GatewayIntentID string `json:"gateway_intent_id,omitempty"`
	GatewayChargeID string `json:"gateway_charge_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	ProcessedAt     string `json:"processed_at,omitempty"`
}

func toResponse(p *core.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:              p.ID.String(),
		OrderID:         p.OrderID,
		CustomerID:      p.CustomerID,
		Amount:          p.Amount.Amount.StringFixed(2),
		Currency:        p.Amount.Currency,
		Status:          string(p.Status),
		GatewayIntentID: p.GatewayIntentID,
		GatewayChargeID: p.GatewayChargeID,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	if p.ProcessedAt != nil {
		resp.ProcessedAt = p.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	payment, err := h.paymentService.CreatePayment(c.Request().Context(), input.CreatePaymentRequest{
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Currency:   req.Currency,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, toResponse(payment))
}

// ConfirmPayment handles POST /api/v1/payments/:id/confirm
func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid payment ID",
		})
	}

	payment, err := h.paymentService.ConfirmPayment(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, toResponse(payment))
}

// RefundPayment handles POST /api/v1/payments/:id/refund
func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid payment ID",
		})
	}

	var req RefundPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	payment, err := h.paymentService.RefundPayment(c.Request().Context(), id, req.Amount)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, toResponse(payment))
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid payment ID",
		})
	}

	payment, err := h.paymentService.GetPaymentByID(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	if payment == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Payment not found",
		})
	}

	return c.JSON(http.StatusOK, toResponse(payment))
}

// GetPaymentByOrder handles GET /api/v1/payments/order/:orderId
func (h *PaymentHandler) GetPaymentByOrder(c echo.Context) error {
	payment, err := h.paymentService.GetPaymentByOrderID(c.Request().Context(), c.Param("orderId"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	if payment == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Payment not found",
		})
	}

	return c.JSON(http.StatusOK, toResponse(payment))
}

// GetPaymentsByCustomer handles GET /api/v1/payments/customer/:customerId
func (h *PaymentHandler) GetPaymentsByCustomer(c echo.Context) error {
	payments, err := h.paymentService.GetPaymentsByCustomer(c.Request().Context(), c.Param("customerId"))
	if err != nil {
		return h.errorResponse(c, err)
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, toResponse(&payments[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"payments": responses,
	})
}

// GatewayWebhook handles POST /api/v1/webhooks/gateway. The endpoint always
// acks with 200 once the request has been read; a bad signature is logged
// and discarded rather than surfaced as a hard failure to the gateway.
func (h *PaymentHandler) GatewayWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"received": false,
		})
	}

	signature := c.Request().Header.Get(SignatureHeader)
	if !h.verifier.Verify(payload, signature) {
		h.logger.Warn("discarding webhook with invalid signature",
			zap.Int("payload_bytes", len(payload)))
		return c.JSON(http.StatusOK, map[string]interface{}{
			"received": false,
		})
	}

	event, err := webhook.ParseEvent(payload)
	if err != nil {
		h.logger.Warn("discarding unparseable webhook", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]interface{}{
			"received": false,
		})
	}

	if err := h.paymentService.HandleGatewayEvent(c.Request().Context(), event); err != nil {
		// Transient failure: let the gateway redeliver.
		h.logger.Error("failed to apply webhook event",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"received": false,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"received": true,
	})
}

// errorResponse maps the core error taxonomy onto HTTP statuses.
func (h *PaymentHandler) errorResponse(c echo.Context, err error) error {
	var validationErr *core.ValidationError
	var gatewayErr *core.GatewayError

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	case errors.Is(err, core.ErrDuplicatePayment):
		return c.JSON(http.StatusConflict, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, core.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, core.ErrInvalidStateTransition):
		return c.JSON(http.StatusConflict, map[string]string{
			"error": err.Error(),
		})
	case errors.As(err, &gatewayErr):
		h.logger.Error("gateway call failed",
			zap.String("op", gatewayErr.Op),
			zap.Bool("ambiguous", gatewayErr.Ambiguous),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "Payment gateway unavailable",
		})
	default:
		h.logger.Error("unexpected error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}
}
