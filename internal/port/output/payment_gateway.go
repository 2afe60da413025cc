package output

import (
	"context"
)

// IntentOutcome is the closed set of states the gateway can report for a
// payment intent. The engine switches over this instead of matching the
// gateway's raw status strings.
type IntentOutcome int

const (
	// OutcomePending means the gateway has not resolved the intent yet.
	OutcomePending IntentOutcome = iota
	// OutcomeSucceeded means funds were captured.
	OutcomeSucceeded
	// OutcomeFailed means the gateway declined or the intent was abandoned.
	OutcomeFailed
)

func (o IntentOutcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// IntentState is the gateway's view of an intent at a point in time.
// ChargeID is set once a charge has captured funds.
type IntentState struct {
	Outcome  IntentOutcome
	ChargeID string
}

// PaymentGateway is an output port (secondary port) for the external payment
// gateway that actually moves money. Amounts cross this boundary in integer
// minor units; the conversion happens in the engine and is exact.
// Every call honors ctx for timeout and cancellation.
type PaymentGateway interface {
	// CreateIntent creates a payment intent tagged with the order id as
	// correlation metadata and returns the gateway's intent id.
	CreateIntent(ctx context.Context, customerRef string, amountMinor int64, currency, orderID string) (string, error)

	// ConfirmIntent asks the gateway to confirm the intent and reports the
	// resulting state.
	ConfirmIntent(ctx context.Context, intentID string) (IntentState, error)

	// RetrieveIntent reads the intent's current state without side effects.
	// Used for reconciliation after an ambiguous outcome.
	RetrieveIntent(ctx context.Context, intentID string) (IntentState, error)

	// CreateRefund refunds amountMinor against a captured charge and
	// returns the gateway's refund id.
	CreateRefund(ctx context.Context, chargeID string, amountMinor int64, currency string) (string, error)
}
