package service

import (
	"context"
	"errors"
	"time"

	"github.com/nicomollet/payment-reconciler/internal/interfaces"
	"github.com/nicomollet/payment-reconciler/internal/models"
)

// OrderLocker implements the advisory per-order payment lock. The lock is a
// future expiry timestamp stored on the order record, not a true mutex: it
// self-expires after the TTL so a crashed holder cannot deadlock the order.
// The bounded window where an expired lock's holder is still running is an
// accepted risk of this scheme.
type OrderLocker struct {
	repo interfaces.OrderRepository
	now  func() time.Time
}

func NewOrderLocker(repo interfaces.OrderRepository) *OrderLocker {
	return &OrderLocker{repo: repo, now: time.Now}
}

// Acquire sets the lock expiry iff no unexpired lock exists, persisting it.
// Returns false when another handler still holds a valid lock, including
// losing the persistence race to a concurrent acquirer.
func (l *OrderLocker) Acquire(ctx context.Context, order *models.Order, ttl time.Duration) (bool, error) {
	now := l.now()
	if order.IsLocked(now) {
		return false, nil
	}
	order.LockExpiry = now.Add(ttl)
	if err := l.repo.SaveLock(ctx, order); err != nil {
		order.LockExpiry = time.Time{}
		if errors.Is(err, interfaces.ErrLockHeld) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release clears the lock expiry unconditionally and persists the change.
func (l *OrderLocker) Release(ctx context.Context, order *models.Order) error {
	order.LockExpiry = time.Time{}
	return l.repo.SaveLock(ctx, order)
}
