package input

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fooddelivery/payment-service/internal/core"
	"github.com/fooddelivery/payment-service/internal/core/webhook"
)

// CreatePaymentRequest represents the request to create a payment.
type CreatePaymentRequest struct {
	OrderID    string
	CustomerID string
	Amount     decimal.Decimal
	Currency   string
}

// PaymentService is an input port (primary port) for payment lifecycle
// operations. Primary adapters (HTTP handlers, the reconciliation worker)
// use this. Mutating operations return the payment together with a typed
// error from internal/core; queries report absence as a nil payment (or an
// empty slice), never as an error.
type PaymentService interface {
	// CreatePayment validates the request, creates a gateway intent and
	// persists a new PROCESSING payment. At most one payment exists per
	// order id.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*core.Payment, error)

	// ConfirmPayment resolves a PROCESSING payment to COMPLETED or FAILED
	// based on the gateway's confirmation.
	ConfirmPayment(ctx context.Context, id uuid.UUID) (*core.Payment, error)

	// RefundPayment refunds up to the original amount of a COMPLETED
	// payment and moves it to REFUNDED.
	RefundPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*core.Payment, error)

	// ReconcilePayment re-reads the gateway state for a PROCESSING payment
	// and applies the resulting transition, if any.
	ReconcilePayment(ctx context.Context, id uuid.UUID) (*core.Payment, error)

	// HandleGatewayEvent applies a verified asynchronous gateway event to
	// the payment it references.
	HandleGatewayEvent(ctx context.Context, event webhook.Event) error

	// GetPaymentByID retrieves a payment by ID.
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*core.Payment, error)

	// GetPaymentByOrderID retrieves the payment for an order.
	GetPaymentByOrderID(ctx context.Context, orderID string) (*core.Payment, error)

	// GetPaymentsByCustomer retrieves all payments made by a customer.
	GetPaymentsByCustomer(ctx context.Context, customerID string) ([]core.Payment, error)
}
