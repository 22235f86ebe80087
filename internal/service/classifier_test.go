package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicomollet/payment-reconciler/internal/models"
)

func TestClassifyChargeEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "charge.failed",
		"data": {"object": {"id": "ch_123", "object": "charge"}}
	}`)

	event, err := ClassifyEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, models.EventChargeFailed, event.Type)
	assert.Equal(t, "ch_123", event.ChargeID)
}

func TestClassifyDisputeEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"type": "charge.dispute.created",
		"data": {"object": {"id": "dp_1", "charge": "ch_123", "status": "needs_response"}}
	}`)

	event, err := ClassifyEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, models.EventChargeDisputeCreated, event.Type)
	assert.Equal(t, "ch_123", event.ChargeID)
	assert.Equal(t, "needs_response", event.DisputeStatus)
}

func TestClassifyPaymentIntentEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_3",
		"type": "payment_intent.payment_failed",
		"data": {"object": {
			"id": "pi_mock",
			"charges": [{"id": "ch_mock", "metadata": {"order_id": "order_42"}}],
			"last_payment_error": {"message": "Your card was declined. You can call your bank for details."}
		}}
	}`)

	event, err := ClassifyEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, models.EventIntentPaymentFailed, event.Type)
	assert.Equal(t, "pi_mock", event.IntentID)
	assert.Equal(t, "ch_mock", event.ChargeID)
	assert.Equal(t, "order_42", event.OrderID)
	assert.Equal(t, "Your card was declined. You can call your bank for details.", event.FailureMessage)
}

func TestClassifyUnsupportedEvent(t *testing.T) {
	payload := []byte(`{"id": "evt_4", "type": "customer.created", "data": {"object": {}}}`)

	_, err := ClassifyEvent(payload)

	var unsupported *UnsupportedEventError
	require.ErrorAs(t, err, &unsupported)
	assert.EqualError(t, err, "Unsupported webhook type: customer.created")
}

func TestClassifyMalformedPayload(t *testing.T) {
	_, err := ClassifyEvent([]byte(`{not json`))
	require.Error(t, err)
}
