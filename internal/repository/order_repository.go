package repository

import (
	"context"
	"database/sql"

	"github.com/nicomollet/payment-reconciler/internal/interfaces"
	"github.com/nicomollet/payment-reconciler/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(255) PRIMARY KEY,
			status VARCHAR(50) NOT NULL,
			transaction_id VARCHAR(255),
			payment_intent_id VARCHAR(255),
			payment_method_type VARCHAR(50),
			status_final BOOLEAN NOT NULL DEFAULT FALSE,
			waiting_for_redirect BOOLEAN NOT NULL DEFAULT FALSE,
			lock_expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_transaction_id ON orders(transaction_id)`,
		`CREATE TABLE IF NOT EXISTS order_notes (
			id SERIAL PRIMARY KEY,
			order_id VARCHAR(255) NOT NULL REFERENCES orders(id),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_notes_order_id ON order_notes(order_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

const orderColumns = `id, status, COALESCE(transaction_id, ''), COALESCE(payment_intent_id, ''),
	COALESCE(payment_method_type, ''), status_final, waiting_for_redirect, lock_expires_at,
	created_at, updated_at`

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1
	`, id)
	return r.scanOrder(ctx, row)
}

func (r *OrderRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE transaction_id = $1
	`, transactionID)
	return r.scanOrder(ctx, row)
}

// SaveTransition persists status, flags and notes in one transaction so a
// crash mid-transition leaves the order untouched.
func (r *OrderRepository) SaveTransition(ctx context.Context, order *models.Order, notes []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, status_final = $2, waiting_for_redirect = $3, updated_at = NOW()
		WHERE id = $4
	`, order.Status, order.StatusFinal, order.WaitingForRedirect, order.ID)
	if err != nil {
		return err
	}

	for _, note := range notes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_notes (order_id, content) VALUES ($1, $2)
		`, order.ID, note); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveLock writes the lock expiry. Acquiring is guarded so two handlers that
// both read an unlocked order cannot both persist a claim; clearing is
// unconditional.
func (r *OrderRepository) SaveLock(ctx context.Context, order *models.Order) error {
	if order.LockExpiry.IsZero() {
		_, err := r.db.ExecContext(ctx,
			`UPDATE orders SET lock_expires_at = NULL WHERE id = $1`, order.ID)
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET lock_expires_at = $1
		WHERE id = $2 AND (lock_expires_at IS NULL OR lock_expires_at < NOW())
	`, order.LockExpiry, order.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return interfaces.ErrLockHeld
	}
	return nil
}

func (r *OrderRepository) scanOrder(ctx context.Context, row *sql.Row) (*models.Order, error) {
	var (
		order      models.Order
		lockExpiry sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.Status, &order.TransactionID, &order.PaymentIntentID,
		&order.PaymentMethodType, &order.StatusFinal, &order.WaitingForRedirect,
		&lockExpiry, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lockExpiry.Valid {
		order.LockExpiry = lockExpiry.Time
	}

	order.Notes, err = r.loadNotes(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) loadNotes(ctx context.Context, orderID string) ([]models.OrderNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT content, created_at FROM order_notes WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.OrderNote
	for rows.Next() {
		var note models.OrderNote
		if err := rows.Scan(&note.Content, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
