package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fooddelivery/payment-service/internal/core"
	"github.com/fooddelivery/payment-service/internal/core/webhook"
	"github.com/fooddelivery/payment-service/internal/port/input"
	"github.com/fooddelivery/payment-service/internal/port/output"
)

const defaultGatewayTimeout = 15 * time.Second

// PaymentServiceImpl implements the PaymentService input port. It owns the
// payment state machine: all validation, gateway calls and status
// transitions go through here.
type PaymentServiceImpl struct {
	repo           output.PaymentRepository
	gateway        output.PaymentGateway
	events         output.EventPublisher
	logger         *zap.Logger
	gatewayTimeout time.Duration

	// check-then-create is serialized per order id, confirm/refund per
	// payment id. The repository's row-locked compare-and-set backs this
	// up across processes.
	orderLocks   *keyedMutex
	paymentLocks *keyedMutex
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	repo output.PaymentRepository,
	gateway output.PaymentGateway,
	events output.EventPublisher,
	logger *zap.Logger,
	gatewayTimeout time.Duration,
) input.PaymentService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = defaultGatewayTimeout
	}
	return &PaymentServiceImpl{
		repo:           repo,
		gateway:        gateway,
		events:         events,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
		orderLocks:     newKeyedMutex(),
		paymentLocks:   newKeyedMutex(),
	}
}

// CreatePayment creates a gateway intent for the order and persists a new
// PROCESSING payment. The intent is created before any row exists, so a
// gateway failure leaves no orphaned record.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req input.CreatePaymentRequest) (*core.Payment, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if req.OrderID == "" {
		return nil, &core.ValidationError{Field: "orderId", Reason: "is required"}
	}
	if req.CustomerID == "" {
		return nil, &core.ValidationError{Field: "customerId", Reason: "is required"}
	}
	amount, err := core.NewMoney(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, &core.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	unlock := s.orderLocks.lock(req.OrderID)
	defer unlock()

	existing, err := s.repo.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing payment: %w", err)
	}
	if existing != nil {
		return nil, core.ErrDuplicatePayment
	}

	minor, err := amount.MinorUnits()
	if err != nil {
		return nil, &core.ValidationError{Field: "amount", Reason: "more than two decimal places"}
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	intentID, err := s.gateway.CreateIntent(gctx, req.CustomerID, minor, amount.Currency, req.OrderID)
	if err != nil {
		return nil, s.gatewayError("create intent", err)
	}

	now := time.Now()
	payment := &core.Payment{
		ID:              uuid.New(),
		OrderID:         req.OrderID,
		CustomerID:      req.CustomerID,
		Amount:          amount,
		Status:          core.PaymentStatusProcessing,
		GatewayIntentID: intentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	s.publish(ctx, output.EventPaymentCreated, payment)
	return payment, nil
}

// ConfirmPayment resolves a PROCESSING payment through the gateway. The
// transition is one-way: a confirm on an already COMPLETED or FAILED
// payment is rejected, never retried here.
func (s *PaymentServiceImpl) ConfirmPayment(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	unlock := s.paymentLocks.lock(id.String())
	defer unlock()

	payment, err := s.findForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != core.PaymentStatusProcessing {
		return payment, fmt.Errorf("cannot confirm payment in status %s: %w", payment.Status, core.ErrInvalidStateTransition)
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	state, err := s.gateway.ConfirmIntent(gctx, payment.GatewayIntentID)
	if err != nil {
		gerr := s.gatewayError("confirm intent", err)
		if gerr.Ambiguous {
			// Outcome unknown on the gateway side: local state must not be
			// trusted until the reconciliation worker re-reads the intent.
			s.publish(ctx, output.EventPaymentReconcile, payment)
		}
		return payment, gerr
	}

	if state.Outcome == output.OutcomeSucceeded {
		return s.complete(ctx, payment, state.ChargeID)
	}
	return s.fail(ctx, payment)
}

// RefundPayment refunds up to the original amount against the captured
// charge. Refunds are never retried automatically: a retry after an
// unknown-outcome failure risks refunding twice.
func (s *PaymentServiceImpl) RefundPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*core.Payment, error) {
	unlock := s.paymentLocks.lock(id.String())
	defer unlock()

	payment, err := s.findForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != core.PaymentStatusCompleted {
		return payment, fmt.Errorf("cannot refund payment in status %s: %w", payment.Status, core.ErrInvalidStateTransition)
	}

	refund, err := core.NewMoney(amount, payment.Amount.Currency)
	if err != nil {
		return payment, err
	}
	if !refund.IsPositive() {
		return payment, &core.ValidationError{Field: "refundAmount", Reason: "must be greater than zero"}
	}
	if refund.GreaterThan(payment.Amount) {
		return payment, &core.ValidationError{Field: "refundAmount", Reason: "exceeds the original charge"}
	}
	minor, err := refund.MinorUnits()
	if err != nil {
		return payment, &core.ValidationError{Field: "refundAmount", Reason: "more than two decimal places"}
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	if _, err := s.gateway.CreateRefund(gctx, payment.GatewayChargeID, minor, refund.Currency); err != nil {
		// Leave the payment COMPLETED; the caller decides whether to retry.
		gerr := s.gatewayError("create refund", err)
		if gerr.Ambiguous {
			s.publish(ctx, output.EventPaymentReconcile, payment)
		}
		return payment, gerr
	}

	expected := payment.Status
	if err := payment.MarkRefunded(); err != nil {
		return payment, err
	}
	payment.UpdatedAt = time.Now()
	if err := s.repo.UpdateStatus(ctx, payment, expected); err != nil {
		return payment, fmt.Errorf("failed to persist refund: %w", err)
	}

	s.publish(ctx, output.EventPaymentRefunded, payment)
	return payment, nil
}

// ReconcilePayment re-reads the intent from the gateway and resolves a
// PROCESSING payment the same way confirm would. While the gateway still
// reports the intent pending, the payment is left untouched. Payments that
// already reached a final status are returned as-is: the first transition
// is authoritative.
func (s *PaymentServiceImpl) ReconcilePayment(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	unlock := s.paymentLocks.lock(id.String())
	defer unlock()

	payment, err := s.findForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != core.PaymentStatusProcessing {
		return payment, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	state, err := s.gateway.RetrieveIntent(gctx, payment.GatewayIntentID)
	if err != nil {
		return payment, s.gatewayError("retrieve intent", err)
	}

	switch state.Outcome {
	case output.OutcomeSucceeded:
		return s.complete(ctx, payment, state.ChargeID)
	case output.OutcomeFailed:
		return s.fail(ctx, payment)
	default:
		return payment, nil
	}
}

// HandleGatewayEvent applies a verified webhook event. Events referencing
// unknown intents or payments that already left PROCESSING are acknowledged
// and dropped; a webhook never moves a payment backward.
func (s *PaymentServiceImpl) HandleGatewayEvent(ctx context.Context, event webhook.Event) error {
	payment, err := s.repo.FindByIntentID(ctx, event.IntentID)
	if err != nil {
		return fmt.Errorf("failed to look up payment for intent: %w", err)
	}
	if payment == nil {
		s.logger.Warn("webhook references unknown intent",
			zap.String("intent_id", event.IntentID),
			zap.String("event_type", string(event.Type)))
		return nil
	}

	unlock := s.paymentLocks.lock(payment.ID.String())
	defer unlock()

	// Re-read under the lock; a concurrent confirm may have resolved it.
	payment, err = s.findForUpdate(ctx, payment.ID)
	if err != nil {
		return err
	}
	if payment.Status != core.PaymentStatusProcessing {
		s.logger.Debug("webhook event ignored, payment already resolved",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
			zap.String("event_type", string(event.Type)))
		return nil
	}

	switch event.Type {
	case webhook.EventChargeSucceeded:
		_, err = s.complete(ctx, payment, event.ChargeID)
	case webhook.EventChargeFailed:
		_, err = s.fail(ctx, payment)
	}
	return err
}

// GetPaymentByID retrieves a payment by ID. Absence is a nil payment, not
// an error.
func (s *PaymentServiceImpl) GetPaymentByID(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	return s.repo.FindByID(ctx, id)
}

// GetPaymentByOrderID retrieves the payment for an order.
func (s *PaymentServiceImpl) GetPaymentByOrderID(ctx context.Context, orderID string) (*core.Payment, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}

// GetPaymentsByCustomer retrieves all payments made by a customer.
func (s *PaymentServiceImpl) GetPaymentsByCustomer(ctx context.Context, customerID string) ([]core.Payment, error) {
	return s.repo.FindByCustomerID(ctx, customerID)
}

// findForUpdate loads a payment for a mutating operation, mapping absence
// to ErrNotFound.
func (s *PaymentServiceImpl) findForUpdate(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, core.ErrNotFound
	}
	return payment, nil
}

func (s *PaymentServiceImpl) complete(ctx context.Context, payment *core.Payment, chargeID string) (*core.Payment, error) {
	expected := payment.Status
	if err := payment.MarkCompleted(chargeID, time.Now()); err != nil {
		return payment, err
	}
	payment.UpdatedAt = time.Now()
	if err := s.repo.UpdateStatus(ctx, payment, expected); err != nil {
		return payment, fmt.Errorf("failed to persist completion: %w", err)
	}
	s.publish(ctx, output.EventPaymentCompleted, payment)
	return payment, nil
}

func (s *PaymentServiceImpl) fail(ctx context.Context, payment *core.Payment) (*core.Payment, error) {
	expected := payment.Status
	if err := payment.MarkFailed(); err != nil {
		return payment, err
	}
	payment.UpdatedAt = time.Now()
	if err := s.repo.UpdateStatus(ctx, payment, expected); err != nil {
		return payment, fmt.Errorf("failed to persist failure: %w", err)
	}
	s.publish(ctx, output.EventPaymentFailed, payment)
	return payment, nil
}

// gatewayError classifies a failed gateway call. Timeouts and cancellations
// are ambiguous: the call may or may not have taken effect on the gateway.
func (s *PaymentServiceImpl) gatewayError(op string, err error) *core.GatewayError {
	ambiguous := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	return &core.GatewayError{Op: op, Ambiguous: ambiguous, Err: err}
}

// publish emits a lifecycle event. Publishing is best effort: a committed
// transition is never rolled back because a subscriber is unavailable.
func (s *PaymentServiceImpl) publish(ctx context.Context, eventType output.EventType, payment *core.Payment) {
	event := output.PaymentEvent{
		Type:       eventType,
		PaymentID:  payment.ID,
		OrderID:    payment.OrderID,
		Amount:     payment.Amount.Amount,
		Currency:   payment.Amount.Currency,
		OccurredAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish payment event",
			zap.String("event_type", string(eventType)),
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
	}
}
