package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for deterministic local rejections. Callers match these
// with errors.Is; the engine never retries them.
var (
	// ErrDuplicatePayment means a payment already exists for the order
	// (idempotency guard against double charging on client retry).
	ErrDuplicatePayment = errors.New("payment already exists for order")

	// ErrNotFound means no payment matches the given identifier.
	ErrNotFound = errors.New("payment not found")

	// ErrInvalidStateTransition means the requested operation is not legal
	// in the payment's current status.
	ErrInvalidStateTransition = errors.New("invalid payment state transition")

	// ErrVerificationFailed means a webhook signature did not verify.
	ErrVerificationFailed = errors.New("webhook signature verification failed")
)

// ValidationError reports a user-correctable input problem, naming the
// offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// GatewayError wraps a failed, timed-out, or malformed external gateway
// call. Ambiguous is set when the outcome on the gateway side is unknown
// (timeout or cancellation mid-flight) and local state must be reconciled
// before it can be trusted.
type GatewayError struct {
	Op        string
	Ambiguous bool
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("gateway %s failed with unknown outcome: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
