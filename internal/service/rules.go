package service

import (
	"fmt"

	"github.com/nicomollet/payment-reconciler/internal/models"
)

// TransitionOutcome distinguishes an applied transition from the guard that
// suppressed it, so callers never have to guess why nothing changed.
type TransitionOutcome string

const (
	OutcomeApplied       TransitionOutcome = "applied"
	OutcomeSkippedLocked TransitionOutcome = "skipped_locked"
	OutcomeSkippedFinal  TransitionOutcome = "skipped_final"
	OutcomeNoOp          TransitionOutcome = "noop"
)

// Decision is the committed result of evaluating one event against one order:
// the status to move to (empty means unchanged), the audit notes to append,
// and the side-effect actions to emit. Actions are dispatched only after the
// decision is persisted, never speculatively.
type Decision struct {
	Outcome   TransitionOutcome
	NewStatus models.OrderStatus
	Notes     []string
	Actions   []Action
}

func noOp() Decision {
	return Decision{Outcome: OutcomeNoOp}
}

// statusChangedNote appends the merchant-facing before/after phrase to a note.
func statusChangedNote(base string, from, to models.OrderStatus) string {
	return fmt.Sprintf("%s Order status changed from %s to %s.", base, from.DisplayName(), to.DisplayName())
}

// EvaluateTransition computes the deterministic transition rule for the event
// kind against the order's current state. It is a pure function: persistence,
// locking and dispatch are the caller's job, in that sequence.
func EvaluateTransition(order *models.Order, event *models.Event) (Decision, error) {
	switch event.Type {
	case models.EventChargeFailed:
		return evaluateChargeTerminal(order, "This payment failed to clear."), nil
	case models.EventChargeExpired:
		return evaluateChargeTerminal(order, "This payment has expired."), nil
	case models.EventChargeDisputeCreated:
		return evaluateDispute(order, event), nil
	case models.EventIntentSucceeded, models.EventDeferredIntentSucceeded:
		return evaluateIntentSucceeded(order), nil
	case models.EventIntentRequiresAction:
		return evaluateRequiresAction(order), nil
	case models.EventIntentAmountCapturable:
		return evaluateAmountCapturable(order), nil
	case models.EventIntentPaymentFailed:
		return evaluateIntentFailed(order, event), nil
	}
	return Decision{}, &UnsupportedEventError{EventType: string(event.Type)}
}

func evaluateChargeTerminal(order *models.Order, reason string) Decision {
	if order.Status == models.StatusFailed || order.Status == models.StatusCancelled {
		return noOp()
	}
	if order.IsFinal() {
		return Decision{Outcome: OutcomeSkippedFinal, Notes: []string{reason}}
	}
	return Decision{
		Outcome:   OutcomeApplied,
		NewStatus: models.StatusFailed,
		Notes:     []string{statusChangedNote(reason, order.Status, models.StatusFailed)},
	}
}

func evaluateDispute(order *models.Order, event *models.Event) Decision {
	needsResponse := event.DisputeStatus == models.DisputeNeedsResponse ||
		event.DisputeStatus == models.DisputeWarningNeedsResponse

	note := "A dispute was created for this order."
	if needsResponse {
		note = "A dispute was created for this order. Response is needed."
	}

	// The note is appended even when the status is left alone, so late
	// dispute info stays visible on resolved orders.
	if order.Status == models.StatusCancelled {
		return Decision{Outcome: OutcomeNoOp, Notes: []string{note}}
	}
	if order.IsFinal() {
		return Decision{Outcome: OutcomeSkippedFinal, Notes: []string{note}}
	}

	if !needsResponse {
		note = statusChangedNote(note, order.Status, models.StatusOnHold)
	}
	return Decision{
		Outcome:   OutcomeApplied,
		NewStatus: models.StatusOnHold,
		Notes:     []string{note},
	}
}

func evaluateIntentSucceeded(order *models.Order) Decision {
	if order.Status == models.StatusCancelled {
		return noOp()
	}
	if order.IsFinal() {
		return Decision{Outcome: OutcomeSkippedFinal}
	}
	if order.PaymentMethodType.IsVoucher() {
		// Voucher payments settle out-of-band: fulfillment is delegated to
		// whoever subscribed to the process-payment signal.
		return Decision{Outcome: OutcomeApplied, Actions: []Action{ActionProcessPayment}}
	}
	// For synchronous methods the checkout request already advanced the
	// order; the webhook is only a safety net.
	return noOp()
}

func evaluateRequiresAction(order *models.Order) Decision {
	if order.Status == models.StatusCancelled {
		return noOp()
	}
	if order.IsFinal() {
		return Decision{Outcome: OutcomeSkippedFinal}
	}
	if !order.PaymentMethodType.IsVoucher() || order.Status != models.StatusPending {
		return noOp()
	}
	return Decision{
		Outcome:   OutcomeApplied,
		NewStatus: models.StatusOnHold,
		Notes:     []string{statusChangedNote("Awaiting payment.", order.Status, models.StatusOnHold)},
	}
}

func evaluateAmountCapturable(order *models.Order) Decision {
	if order.Status == models.StatusCancelled {
		return noOp()
	}
	if order.IsFinal() {
		return Decision{Outcome: OutcomeSkippedFinal}
	}
	if !order.WaitingForRedirect {
		return noOp()
	}
	return Decision{Outcome: OutcomeApplied, Actions: []Action{ActionPaymentIntentIncomplete}}
}

func evaluateIntentFailed(order *models.Order, event *models.Event) Decision {
	var reason string
	if order.PaymentMethodType.IsVoucher() {
		reason = "Payment not completed in time"
	} else {
		reason = fmt.Sprintf("Stripe SCA authentication failed. Reason: %s", event.FailureMessage)
	}

	// A final order keeps its failure-reason audit note even when it
	// already sits in failed or cancelled.
	if order.IsFinal() {
		return Decision{Outcome: OutcomeSkippedFinal, Notes: []string{reason}}
	}
	if order.Status == models.StatusFailed || order.Status == models.StatusCancelled {
		return noOp()
	}
	return Decision{
		Outcome:   OutcomeApplied,
		NewStatus: models.StatusFailed,
		Notes:     []string{statusChangedNote(reason, order.Status, models.StatusFailed)},
	}
}
