package core

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// transitions is the closed set of legal status moves. FAILED and REFUNDED
// are terminal.
var transitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
}

// CanTransitionTo reports whether a move from s to next is legal.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment represents a customer payment for an order. Records are never
// deleted; failed and refunded payments remain as an audit trail.
type Payment struct {
	ID              uuid.UUID
	OrderID         string
	CustomerID      string
	Amount          Money
	Status          PaymentStatus
	GatewayIntentID string
	GatewayChargeID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProcessedAt     *time.Time
}

// IsTerminal checks if the payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusFailed || p.Status == PaymentStatusRefunded
}

// MarkCompleted transitions the payment to COMPLETED, recording the charge
// that captured the funds and the processing time.
func (p *Payment) MarkCompleted(chargeID string, at time.Time) error {
	if !p.Status.CanTransitionTo(PaymentStatusCompleted) {
		return ErrInvalidStateTransition
	}
	p.Status = PaymentStatusCompleted
	p.GatewayChargeID = chargeID
	p.ProcessedAt = &at
	return nil
}

// MarkFailed transitions the payment to FAILED.
func (p *Payment) MarkFailed() error {
	if !p.Status.CanTransitionTo(PaymentStatusFailed) {
		return ErrInvalidStateTransition
	}
	p.Status = PaymentStatusFailed
	return nil
}

// MarkRefunded transitions the payment to REFUNDED. Refunds are terminal;
// partial-refund accounting lives in a separate ledger, not on this entity.
func (p *Payment) MarkRefunded() error {
	if !p.Status.CanTransitionTo(PaymentStatusRefunded) {
		return ErrInvalidStateTransition
	}
	p.Status = PaymentStatusRefunded
	return nil
}
