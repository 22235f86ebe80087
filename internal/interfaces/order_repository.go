package interfaces

import (
	"context"
	"errors"

	"github.com/nicomollet/payment-reconciler/internal/models"
)

// ErrLockHeld is returned by SaveLock when acquiring an expiry loses the race
// against another handler that already holds an unexpired lock.
var ErrLockHeld = errors.New("order lock held by another handler")

// OrderRepository defines the contract for order persistence. Not-found
// lookups return sql.ErrNoRows from the concrete implementation.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Order, error)
	// SaveTransition persists the order's status, final flag and the given
	// notes as one unit, so a crash mid-transition leaves the prior state.
	SaveTransition(ctx context.Context, order *models.Order, notes []string) error
	// SaveLock persists only the order's lock expiry. Setting a non-zero
	// expiry succeeds only when no unexpired lock is stored, otherwise it
	// returns ErrLockHeld. A zero expiry clears the lock unconditionally.
	SaveLock(ctx context.Context, order *models.Order) error
}
