package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/nicomollet/payment-reconciler/internal/models"
)

// memRepo is an in-memory OrderRepository for exercising the reconciler
// without a database.
type memRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	notes  map[string][]string
}

func newMemRepo(orders ...*models.Order) *memRepo {
	repo := &memRepo{
		orders: make(map[string]*models.Order),
		notes:  make(map[string][]string),
	}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return order, nil
}

func (r *memRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.TransactionID == transactionID {
			return order, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memRepo) SaveTransition(ctx context.Context, order *models.Order, notes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	r.notes[order.ID] = append(r.notes[order.ID], notes...)
	return nil
}

func (r *memRepo) SaveLock(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *memRepo) orderNotes(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notes[id]...)
}

func (r *memRepo) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
}

// flakyRepo fails a configurable number of SaveTransition calls before
// delegating, to simulate a transient database outage.
type flakyRepo struct {
	*memRepo
	failures int
}

func (r *flakyRepo) SaveTransition(ctx context.Context, order *models.Order, notes []string) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("transient db outage")
	}
	return r.memRepo.SaveTransition(ctx, order, notes)
}

// fakeFetcher returns a canned intent snapshot and records calls.
type fakeFetcher struct {
	intent *models.IntentSnapshot
	err    error
	calls  int
}

func (f *fakeFetcher) FetchIntent(ctx context.Context, intentID string) (*models.IntentSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}
