package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"type":"charge.succeeded","intent_id":"pi_1","charge_id":"ch_1"}`)

	v := NewVerifier(secret)

	t.Run("valid signature", func(t *testing.T) {
		assert.True(t, v.Verify(payload, sign(secret, payload)))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, v.Verify(payload, sign("other", payload)))
	})

	t.Run("tampered payload", func(t *testing.T) {
		sig := sign(secret, payload)
		tampered := append([]byte{}, payload...)
		tampered[len(tampered)-2] = 'x'
		assert.False(t, v.Verify(tampered, sig))
	})

	t.Run("malformed hex is not authentic", func(t *testing.T) {
		assert.False(t, v.Verify(payload, "not-hex!"))
	})

	t.Run("empty signature", func(t *testing.T) {
		assert.False(t, v.Verify(payload, ""))
	})

	t.Run("empty secret rejects everything", func(t *testing.T) {
		empty := NewVerifier("")
		assert.False(t, empty.Verify(payload, sign("", payload)))
	})
}

func TestParseEvent(t *testing.T) {
	t.Run("charge succeeded", func(t *testing.T) {
		evt, err := ParseEvent([]byte(`{"type":"charge.succeeded","intent_id":"pi_1","charge_id":"ch_1"}`))
		require.NoError(t, err)
		assert.Equal(t, EventChargeSucceeded, evt.Type)
		assert.Equal(t, "pi_1", evt.IntentID)
		assert.Equal(t, "ch_1", evt.ChargeID)
	})

	t.Run("charge failed", func(t *testing.T) {
		evt, err := ParseEvent([]byte(`{"type":"charge.failed","intent_id":"pi_2"}`))
		require.NoError(t, err)
		assert.Equal(t, EventChargeFailed, evt.Type)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{"type":"customer.created","intent_id":"pi_1"}`))
		assert.Error(t, err)
	})

	t.Run("missing intent id", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{"type":"charge.failed"}`))
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseEvent([]byte(`<xml/>`))
		assert.Error(t, err)
	})
}
