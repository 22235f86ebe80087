package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/nicomollet/payment-reconciler/internal/models"
	"github.com/nicomollet/payment-reconciler/internal/telemetry"
)

type Action string

const (
	ActionProcessPayment          Action = "process_payment"
	ActionPaymentIntentIncomplete Action = "payment_intent_incomplete"
)

// ActionContext carries the intent/charge data a fulfillment subscriber needs.
type ActionContext struct {
	IntentID string
	ChargeID string
}

// ActionHandler is a fulfillment callback. It runs asynchronously relative to
// the reconciliation transaction and must not assume the webhook HTTP
// response is still pending. Failures are the subscriber's responsibility.
type ActionHandler func(order *models.Order, actionCtx ActionContext)

// Dispatcher fans out named side-effect signals to registered subscribers.
// The core neither knows nor cares whether anything is subscribed.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[Action][]ActionHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[Action][]ActionHandler)}
}

// Subscribe registers a handler for the named action.
func (d *Dispatcher) Subscribe(action Action, handler ActionHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[action] = append(d.subs[action], handler)
}

// Emit fires the named signal to all subscribers without blocking on their
// completion. Panicking subscribers are contained and logged.
func (d *Dispatcher) Emit(action Action, order *models.Order, actionCtx ActionContext) {
	d.mu.RLock()
	handlers := d.subs[action]
	d.mu.RUnlock()

	telemetry.ActionsDispatched.WithLabelValues(string(action)).Inc()

	for _, handler := range handlers {
		go func(h ActionHandler) {
			defer func() {
				if r := recover(); r != nil {
					telemetry.Logger.Error("Action subscriber panicked",
						zap.String("action", string(action)),
						zap.String("order_id", order.ID),
						zap.Any("panic", r),
					)
				}
			}()
			h(order, actionCtx)
		}(handler)
	}
}
