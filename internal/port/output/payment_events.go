package output

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies a payment lifecycle event published to downstream
// consumers (notification, accounting ledger, reconciliation worker).
type EventType string

const (
	EventPaymentCreated   EventType = "payment.created"
	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentRefunded  EventType = "payment.refunded"
	// EventPaymentReconcile asks the reconciliation worker to re-read the
	// gateway state for a payment whose last operation had an ambiguous
	// outcome.
	EventPaymentReconcile EventType = "payment.reconcile"
)

// PaymentEvent is the message emitted after each successful transition.
type PaymentEvent struct {
	Type       EventType       `json:"type"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EventPublisher is an output port (secondary port) for payment event
// publishing. Delivery is decoupled from subscriber availability: the
// engine logs publish failures but never fails an already-committed
// transition because of one.
type EventPublisher interface {
	// Publish emits a payment event.
	Publish(ctx context.Context, event PaymentEvent) error
	// Close closes the messaging connection.
	Close() error
}
