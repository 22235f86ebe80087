package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicomollet/payment-reconciler/internal/models"
)

func TestProcessDeferredWebhookUnsupportedType(t *testing.T) {
	reconciler := newTestReconciler(newMemRepo(), &fakeFetcher{}, nil)

	err := reconciler.ProcessDeferredWebhook(context.Background(), "event-id", DeferredData{})

	var unsupported *UnsupportedEventError
	require.ErrorAs(t, err, &unsupported)
	assert.EqualError(t, err, "Unsupported webhook type: event-id")
}

func TestProcessDeferredWebhookMissingFields(t *testing.T) {
	order := &models.Order{ID: "order_1", Status: models.StatusPending}
	reconciler := newTestReconciler(newMemRepo(order), &fakeFetcher{}, nil)

	// No data at all.
	err := reconciler.ProcessDeferredWebhook(context.Background(), "payment_intent.succeeded", DeferredData{})
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.EqualError(t, err,
		"Missing required data. 'order_id' is invalid or not found for the deferred 'payment_intent.succeeded' event.")

	// Unknown order id.
	err = reconciler.ProcessDeferredWebhook(context.Background(), "payment_intent.succeeded",
		DeferredData{OrderID: "order_9999"})
	require.ErrorAs(t, err, &missing)
	assert.EqualError(t, err,
		"Missing required data. 'order_id' is invalid or not found for the deferred 'payment_intent.succeeded' event.")

	// Order resolves but the intent id is absent.
	err = reconciler.ProcessDeferredWebhook(context.Background(), "payment_intent.succeeded",
		DeferredData{OrderID: "order_1"})
	require.ErrorAs(t, err, &missing)
	assert.EqualError(t, err,
		"Missing required data. 'intent_id' is missing for the deferred 'payment_intent.succeeded' event.")
}

func TestProcessDeferredWebhookIntentMismatch(t *testing.T) {
	order := &models.Order{
		ID:                "order_1",
		Status:            models.StatusPending,
		PaymentMethodType: models.MethodBoleto,
		PaymentIntentID:   "pi_mock",
	}
	repo := newMemRepo(order)
	fetcher := &fakeFetcher{intent: &models.IntentSnapshot{
		ID:     "pi_mock",
		Status: "succeeded",
		Charges: []models.ChargeSnapshot{
			{ID: "ch_mock", Status: "succeeded", Captured: true},
		},
	}}
	reconciler := newTestReconciler(repo, fetcher, nil)

	// The order has moved on to a new intent; the stale delivery is a
	// silent no-op, not an error.
	err := reconciler.ProcessDeferredWebhook(context.Background(), "payment_intent.succeeded",
		DeferredData{OrderID: "order_1", IntentID: "pi_wrong_id"})
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Empty(t, repo.orderNotes("order_1"))
}

func TestProcessDeferredWebhookSuccess(t *testing.T) {
	order := &models.Order{
		ID:                "order_1",
		Status:            models.StatusPending,
		PaymentMethodType: models.MethodBoleto,
		PaymentIntentID:   "pi_mock",
	}
	repo := newMemRepo(order)
	fetcher := &fakeFetcher{intent: &models.IntentSnapshot{
		ID:     "pi_mock",
		Status: "succeeded",
		Charges: []models.ChargeSnapshot{
			{ID: "ch_mock", Status: "succeeded", Captured: true},
		},
	}}

	dispatcher := NewDispatcher()
	emitted := make(chan ActionContext, 1)
	dispatcher.Subscribe(ActionProcessPayment, func(o *models.Order, actionCtx ActionContext) {
		emitted <- actionCtx
	})
	reconciler := newTestReconciler(repo, fetcher, dispatcher)

	err := reconciler.ProcessDeferredWebhook(context.Background(), "payment_intent.succeeded",
		DeferredData{OrderID: "order_1", IntentID: "pi_mock"})
	require.NoError(t, err)

	// The re-fetched charge drives the same downstream transition as the
	// direct webhook path.
	select {
	case actionCtx := <-emitted:
		assert.Equal(t, "pi_mock", actionCtx.IntentID)
		assert.Equal(t, "ch_mock", actionCtx.ChargeID)
	case <-time.After(time.Second):
		t.Fatal("expected process_payment action from deferred path")
	}
	assert.False(t, order.IsLocked(time.Now()))
}
