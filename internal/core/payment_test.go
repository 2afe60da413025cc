package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentStatusPending, PaymentStatusProcessing, true},
		{PaymentStatusProcessing, PaymentStatusCompleted, true},
		{PaymentStatusProcessing, PaymentStatusFailed, true},
		{PaymentStatusCompleted, PaymentStatusRefunded, true},
		{PaymentStatusPending, PaymentStatusCompleted, false},
		{PaymentStatusCompleted, PaymentStatusProcessing, false},
		{PaymentStatusFailed, PaymentStatusProcessing, false},
		{PaymentStatusFailed, PaymentStatusCompleted, false},
		{PaymentStatusRefunded, PaymentStatusCompleted, false},
		{PaymentStatusRefunded, PaymentStatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMarkCompleted(t *testing.T) {
	p := &Payment{Status: PaymentStatusProcessing}
	at := time.Now()

	require.NoError(t, p.MarkCompleted("ch_1", at))
	assert.Equal(t, PaymentStatusCompleted, p.Status)
	assert.Equal(t, "ch_1", p.GatewayChargeID)
	require.NotNil(t, p.ProcessedAt)
	assert.Equal(t, at, *p.ProcessedAt)

	// Completing twice is illegal
	assert.ErrorIs(t, p.MarkCompleted("ch_2", time.Now()), ErrInvalidStateTransition)
	assert.Equal(t, "ch_1", p.GatewayChargeID)
}

func TestMarkFailedTerminal(t *testing.T) {
	p := &Payment{Status: PaymentStatusProcessing}
	require.NoError(t, p.MarkFailed())
	assert.True(t, p.IsTerminal())

	assert.ErrorIs(t, p.MarkCompleted("ch_1", time.Now()), ErrInvalidStateTransition)
	assert.ErrorIs(t, p.MarkRefunded(), ErrInvalidStateTransition)
}

func TestMarkRefundedTerminal(t *testing.T) {
	p := &Payment{Status: PaymentStatusCompleted}
	require.NoError(t, p.MarkRefunded())
	assert.True(t, p.IsTerminal())

	assert.ErrorIs(t, p.MarkRefunded(), ErrInvalidStateTransition)
	assert.ErrorIs(t, p.MarkFailed(), ErrInvalidStateTransition)
}
