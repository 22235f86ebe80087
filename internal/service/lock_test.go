package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicomollet/payment-reconciler/internal/interfaces"
	"github.com/nicomollet/payment-reconciler/internal/models"
)

func TestOrderLockerAcquireRelease(t *testing.T) {
	order := &models.Order{ID: "order_1", Status: models.StatusPending}
	locker := NewOrderLocker(newMemRepo(order))

	acquired, err := locker.Acquire(context.Background(), order, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, order.IsLocked(time.Now()))

	// A second handler observing the held lock must back off.
	acquired, err = locker.Acquire(context.Background(), order, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, locker.Release(context.Background(), order))
	assert.False(t, order.IsLocked(time.Now()))

	acquired, err = locker.Acquire(context.Background(), order, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

// heldLockRepo simulates another process winning the persisted-claim race
// between this handler's read and its write.
type heldLockRepo struct {
	*memRepo
}

func (r *heldLockRepo) SaveLock(ctx context.Context, order *models.Order) error {
	if !order.LockExpiry.IsZero() {
		return interfaces.ErrLockHeld
	}
	return r.memRepo.SaveLock(ctx, order)
}

func TestOrderLockerLostPersistRaceBacksOff(t *testing.T) {
	order := &models.Order{ID: "order_1", Status: models.StatusPending}
	locker := NewOrderLocker(&heldLockRepo{memRepo: newMemRepo(order)})

	acquired, err := locker.Acquire(context.Background(), order, time.Minute)
	require.NoError(t, err, "a lost race is contention, not a failure")
	assert.False(t, acquired)
	assert.False(t, order.IsLocked(time.Now()), "order must not look locally locked after backing off")
}

func TestOrderLockerExpiredLockIsReacquirable(t *testing.T) {
	// A crashed holder leaves an expired lock behind; the TTL recovers it.
	order := &models.Order{
		ID:         "order_1",
		Status:     models.StatusPending,
		LockExpiry: time.Now().Add(-time.Second),
	}
	locker := NewOrderLocker(newMemRepo(order))

	acquired, err := locker.Acquire(context.Background(), order, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}
