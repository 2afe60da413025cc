package output

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fooddelivery/payment-service/internal/core"
)

// PaymentRepository is an output port (secondary port) for payment data
// access. Secondary adapters (database implementations) will implement this.
// Find operations return (nil, nil) when no record matches; absence is not
// an error for reads.
type PaymentRepository interface {
	// Create persists a new payment. The orderId uniqueness constraint is
	// enforced here as the second line of defense behind the engine's
	// per-order serialization.
	Create(ctx context.Context, payment *core.Payment) error

	// FindByID retrieves a payment by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*core.Payment, error)

	// FindByOrderID retrieves the payment for an order.
	FindByOrderID(ctx context.Context, orderID string) (*core.Payment, error)

	// FindByIntentID retrieves the payment holding a gateway intent id.
	// Webhook events reference payments this way.
	FindByIntentID(ctx context.Context, intentID string) (*core.Payment, error)

	// FindByCustomerID retrieves all payments made by a customer.
	FindByCustomerID(ctx context.Context, customerID string) ([]core.Payment, error)

	// UpdateStatus persists a status transition atomically. The row is
	// locked and its current status compared against expected before the
	// write; a mismatch returns core.ErrInvalidStateTransition so that of
	// two concurrent transitions exactly one wins.
	UpdateStatus(ctx context.Context, payment *core.Payment, expected core.PaymentStatus) error

	// ListStaleProcessing returns payments stuck in PROCESSING since before
	// the given cutoff, for the reconciliation sweep.
	ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]core.Payment, error)
}
