package service

import (
	"encoding/json"
	"fmt"

	"github.com/nicomollet/payment-reconciler/internal/models"
)

// providerEvent mirrors the provider's event envelope. Field names follow the
// provider contract and must not be renamed.
type providerEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID      string `json:"id"`
			Object  string `json:"object"`
			Charge  string `json:"charge"`
			Status  string `json:"status"`
			Charges []struct {
				ID       string `json:"id"`
				Metadata struct {
					OrderID string `json:"order_id"`
				} `json:"metadata"`
			} `json:"charges"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

var knownEventTypes = map[models.EventType]bool{
	models.EventChargeFailed:           true,
	models.EventChargeExpired:          true,
	models.EventChargeDisputeCreated:   true,
	models.EventIntentSucceeded:        true,
	models.EventIntentRequiresAction:   true,
	models.EventIntentAmountCapturable: true,
	models.EventIntentPaymentFailed:    true,
}

// ClassifyEvent maps a verified raw provider payload into a semantic event
// and extracts the canonical order reference for its kind.
func ClassifyEvent(payload []byte) (*models.Event, error) {
	var raw providerEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	kind := models.EventType(raw.Type)
	if !knownEventTypes[kind] {
		return nil, &UnsupportedEventError{EventType: raw.Type}
	}

	event := &models.Event{
		ID:   raw.ID,
		Type: kind,
	}

	switch kind {
	case models.EventChargeFailed, models.EventChargeExpired:
		event.ChargeID = raw.Data.Object.ID

	case models.EventChargeDisputeCreated:
		event.ChargeID = raw.Data.Object.Charge
		event.DisputeStatus = raw.Data.Object.Status

	default: // payment_intent.*
		event.IntentID = raw.Data.Object.ID
		if len(raw.Data.Object.Charges) > 0 {
			event.ChargeID = raw.Data.Object.Charges[0].ID
			event.OrderID = raw.Data.Object.Charges[0].Metadata.OrderID
		}
		if raw.Data.Object.LastPaymentError != nil {
			event.FailureMessage = raw.Data.Object.LastPaymentError.Message
		}
	}

	return event, nil
}
