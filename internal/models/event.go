package models

type EventType string

const (
	EventChargeFailed            EventType = "charge.failed"
	EventChargeExpired           EventType = "charge.expired"
	EventChargeDisputeCreated    EventType = "charge.dispute.created"
	EventIntentSucceeded         EventType = "payment_intent.succeeded"
	EventIntentRequiresAction    EventType = "payment_intent.requires_action"
	EventIntentAmountCapturable  EventType = "payment_intent.amount_capturable_updated"
	EventIntentPaymentFailed     EventType = "payment_intent.payment_failed"
	EventDeferredIntentSucceeded EventType = "deferred.payment_intent.succeeded"
)

// Dispute statuses that require a merchant response.
const (
	DisputeNeedsResponse        = "needs_response"
	DisputeWarningNeedsResponse = "warning_needs_response"
)

// Event is one classified provider notification. The payload fields are
// flattened from the provider's data.object by the classifier; field semantics
// follow the provider contract (charges[0].metadata.order_id etc.) exactly.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	ChargeID       string    `json:"charge_id,omitempty"`
	IntentID       string    `json:"intent_id,omitempty"`
	OrderID        string    `json:"order_id,omitempty"`
	DisputeStatus  string    `json:"dispute_status,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
}

// IntentSnapshot is a read-only projection of a payment intent fetched from
// the provider on the deferred path. Never persisted.
type IntentSnapshot struct {
	ID      string           `json:"id"`
	Status  string           `json:"status"`
	Charges []ChargeSnapshot `json:"charges"`
}

// ChargeSnapshot is a read-only projection of a charge on an intent.
type ChargeSnapshot struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Captured bool   `json:"captured"`
}

// LatestCharge returns the most recent charge on the intent, or nil.
func (i *IntentSnapshot) LatestCharge() *ChargeSnapshot {
	if len(i.Charges) == 0 {
		return nil
	}
	return &i.Charges[len(i.Charges)-1]
}
