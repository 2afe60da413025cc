package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Verifier authenticates gateway callbacks before they are allowed anywhere
// near the payment state machine. The gateway signs the raw request body
// with HMAC-SHA256 using a shared secret and sends the hex digest in a
// header.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify recomputes the signature over payload and compares it to the
// header value in constant time. Anything malformed is treated as not
// authentic; verification never panics or propagates an error.
func (v *Verifier) Verify(payload []byte, signatureHeader string) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if len(v.secret) == 0 || signatureHeader == "" {
		return false
	}
	provided, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), provided)
}

// EventType identifies the asynchronous gateway notification kind.
type EventType string

const (
	EventChargeSucceeded EventType = "charge.succeeded"
	EventChargeFailed    EventType = "charge.failed"
)

// Event is a verified gateway callback, referencing the payment intent the
// notification is about.
type Event struct {
	Type     EventType `json:"type"`
	IntentID string    `json:"intent_id"`
	ChargeID string    `json:"charge_id,omitempty"`
}

// ParseEvent decodes a verified payload into an Event. Unknown event types
// are rejected here so the engine only ever sees the closed set above.
func ParseEvent(payload []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	switch evt.Type {
	case EventChargeSucceeded, EventChargeFailed:
	default:
		return Event{}, fmt.Errorf("unsupported webhook event type %q", evt.Type)
	}
	if evt.IntentID == "" {
		return Event{}, fmt.Errorf("webhook event missing intent id")
	}
	return evt, nil
}
