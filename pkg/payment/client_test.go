package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

const succeededEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "data": {"object": {
    "id": "pi_123",
    "object": "payment_intent",
    "amount": 104400,
    "currency": "mxn",
    "metadata": {"customer_email": "ana@example.com"}
  }}
}`

func TestParseEventVerifiesSignature(t *testing.T) {
	c := NewClient("sk_test_x", "whsec_test", "MXN")
	payload := []byte(succeededEvent)

	ev, err := c.ParseEvent(payload, sign(payload, "whsec_test"))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventPaymentSucceeded, ev.Type)
	require.NotNil(t, ev.PaymentIntent)
	assert.Equal(t, "pi_123", ev.PaymentIntent.ID)
	assert.Equal(t, int64(104400), ev.PaymentIntent.AmountMinor)
	assert.Equal(t, "ana@example.com", ev.PaymentIntent.Metadata["customer_email"])
}

func TestParseEventRejectsBadSignature(t *testing.T) {
	c := NewClient("sk_test_x", "whsec_test", "mxn")
	payload := []byte(succeededEvent)

	_, err := c.ParseEvent(payload, sign(payload, "whsec_other"))
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(104400), MinorUnits(decimal.RequireFromString("1044.00")))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.985")))
	assert.Equal(t, "mxn", NewClient("sk", "wh", "MXN").Currency())
}
