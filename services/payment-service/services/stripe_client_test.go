package services_test

import (
	"testing"
	"time"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
)

const testWebhookSecret = "whsec_test_secret"

var testPayload = []byte(`{
  "id": "evt_test_1",
  "object": "event",
  "type": "checkout.session.completed",
  "api_version": "2020-08-27",
  "data": {"object": {"id": "cs_test_1", "object": "checkout.session", "amount_total": 4000}}
}`)

func sign(payload []byte, secret string, ts time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	}).Header
}

func TestVerifyEvent_ValidSignature(t *testing.T) {
	svc := services.NewStripeService("sk_test", testWebhookSecret)

	event, err := svc.VerifyEvent(testPayload, sign(testPayload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_test_1", event.ID)
	assert.Equal(t, "checkout.session.completed", string(event.Type))
	require.NotNil(t, event.Data)
	assert.Contains(t, string(event.Data.Raw), "cs_test_1")
}

func TestVerifyEvent_Rejections(t *testing.T) {
	svc := services.NewStripeService("sk_test", testWebhookSecret)
	tampered := []byte(`{"id":"evt_test_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","amount_total":1}}}`)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		want      error
	}{
		{"missing signature", testPayload, "", services.ErrMissingSignature},
		{"wrong secret", testPayload, sign(testPayload, "whsec_other", time.Now()), services.ErrInvalidSignature},
		{"tampered body", tampered, sign(testPayload, testWebhookSecret, time.Now()), services.ErrInvalidSignature},
		{"stale timestamp", testPayload, sign(testPayload, testWebhookSecret, time.Now().Add(-time.Hour)), services.ErrInvalidSignature},
		{"garbage header", testPayload, "t=abc,v1=def", services.ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyEvent(tt.payload, tt.signature)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifyEvent_SecretNotConfigured(t *testing.T) {
	svc := services.NewStripeService("sk_test", "")

	_, err := svc.VerifyEvent(testPayload, sign(testPayload, testWebhookSecret, time.Now()))
	assert.ErrorIs(t, err, services.ErrWebhookSecretMissing)
}
