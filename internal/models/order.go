package models

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusOnHold     OrderStatus = "on-hold"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusFailed     OrderStatus = "failed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// DisplayName returns the merchant-facing label used in order notes.
func (s OrderStatus) DisplayName() string {
	switch s {
	case StatusPending:
		return "Pending payment"
	case StatusOnHold:
		return "On hold"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	case StatusRefunded:
		return "Refunded"
	}
	return string(s)
}

type PaymentMethodType string

const (
	MethodCard        PaymentMethodType = "card"
	MethodCardPresent PaymentMethodType = "card_present"
	MethodBoleto      PaymentMethodType = "boleto"
	MethodOxxo        PaymentMethodType = "oxxo"
	MethodMultibanco  PaymentMethodType = "multibanco"
	MethodSEPADebit   PaymentMethodType = "sepa_debit"
)

// IsVoucher reports whether the method is paid out-of-band against a voucher,
// so fulfillment is driven by the provider webhook rather than the checkout flow.
func (m PaymentMethodType) IsVoucher() bool {
	return m == MethodBoleto || m == MethodOxxo || m == MethodMultibanco
}

// IsCardPresent reports whether the method is an in-person terminal payment.
func (m PaymentMethodType) IsCardPresent() bool {
	return m == MethodCardPresent
}

// OrderNote is an append-only audit entry on an order.
type OrderNote struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is the merchant order aggregate as seen by the reconciliation core.
// It is owned by the persistence layer; the core borrows it for one transition.
type Order struct {
	ID                 string            `json:"id"`
	Status             OrderStatus       `json:"status"`
	TransactionID      string            `json:"transaction_id"`
	PaymentIntentID    string            `json:"payment_intent_id"`
	PaymentMethodType  PaymentMethodType `json:"payment_method_type"`
	StatusFinal        bool              `json:"status_final"`
	WaitingForRedirect bool              `json:"waiting_for_redirect"`
	LockExpiry         time.Time         `json:"lock_expiry"`
	Notes              []OrderNote       `json:"notes,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IsLocked reports whether an advisory payment lock is still in force at now.
func (o *Order) IsLocked(now time.Time) bool {
	return !o.LockExpiry.IsZero() && o.LockExpiry.After(now)
}

// IsFinal reports whether the payment outcome has been declared immutable.
func (o *Order) IsFinal() bool {
	return o.StatusFinal
}

// MarkFinal declares the payment outcome immutable. Idempotent.
func (o *Order) MarkFinal() {
	o.StatusFinal = true
}
