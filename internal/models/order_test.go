package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusDisplayNames(t *testing.T) {
	assert.Equal(t, "Pending payment", StatusPending.DisplayName())
	assert.Equal(t, "On hold", StatusOnHold.DisplayName())
	assert.Equal(t, "Processing", StatusProcessing.DisplayName())
	assert.Equal(t, "Failed", StatusFailed.DisplayName())
	assert.Equal(t, "Cancelled", StatusCancelled.DisplayName())
	assert.Equal(t, "some-custom-status", OrderStatus("some-custom-status").DisplayName())
}

func TestPaymentMethodClasses(t *testing.T) {
	assert.True(t, MethodBoleto.IsVoucher())
	assert.True(t, MethodOxxo.IsVoucher())
	assert.True(t, MethodMultibanco.IsVoucher())
	assert.False(t, MethodCard.IsVoucher())

	assert.True(t, MethodCardPresent.IsCardPresent())
	assert.False(t, MethodCard.IsCardPresent())
}

func TestOrderLockState(t *testing.T) {
	now := time.Now()
	order := &Order{ID: "order_1"}

	assert.False(t, order.IsLocked(now), "zero expiry means unlocked")

	order.LockExpiry = now.Add(time.Minute)
	assert.True(t, order.IsLocked(now))

	order.LockExpiry = now.Add(-time.Minute)
	assert.False(t, order.IsLocked(now), "expired lock no longer counts")
}

func TestMarkFinalIdempotent(t *testing.T) {
	order := &Order{ID: "order_1"}

	assert.False(t, order.IsFinal())
	order.MarkFinal()
	assert.True(t, order.IsFinal())
	order.MarkFinal()
	assert.True(t, order.IsFinal())
}
