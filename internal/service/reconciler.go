package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nicomollet/payment-reconciler/internal/interfaces"
	"github.com/nicomollet/payment-reconciler/internal/models"
	"github.com/nicomollet/payment-reconciler/internal/telemetry"
)

// DeferredData is the payload of a deferred webhook. Field names follow the
// provider metadata contract.
type DeferredData struct {
	OrderID  string `json:"order_id"`
	IntentID string `json:"intent_id"`
}

// DeferredWebhookMessage is the queue envelope the checkout service publishes
// when a webhook outruns the synchronous request that owns its order context.
type DeferredWebhookMessage struct {
	Type string       `json:"type"`
	Data DeferredData `json:"data"`
}

// Reconciler drives webhook events through the transition rules under the
// per-order advisory lock, persists the result as one unit and emits
// side-effect actions afterwards.
type Reconciler struct {
	repo        interfaces.OrderRepository
	fetcher     interfaces.IntentFetcher
	locker      *OrderLocker
	dispatcher  *Dispatcher
	redisClient *redis.Client
	kafkaWriter *kafka.Writer
	lockTTL     time.Duration
}

func NewReconciler(
	repo interfaces.OrderRepository,
	fetcher interfaces.IntentFetcher,
	dispatcher *Dispatcher,
	redisClient *redis.Client,
	kafkaWriter *kafka.Writer,
	lockTTL time.Duration,
) *Reconciler {
	return &Reconciler{
		repo:        repo,
		fetcher:     fetcher,
		locker:      NewOrderLocker(repo),
		dispatcher:  dispatcher,
		redisClient: redisClient,
		kafkaWriter: kafkaWriter,
		lockTTL:     lockTTL,
	}
}

// ProcessWebhook reconciles one classified provider event with its order.
// Lock contention and final-status guards are silent no-ops: the provider's
// redelivery or the synchronous checkout path is the eventual source of truth.
func (r *Reconciler) ProcessWebhook(ctx context.Context, event *models.Event) (TransitionOutcome, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "reconciler.process_webhook")
	defer span.End()

	if r.alreadyDelivered(ctx, event) {
		telemetry.Logger.Info("Skipping duplicate webhook delivery",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		telemetry.WebhookEvents.WithLabelValues(string(event.Type), string(OutcomeNoOp)).Inc()
		return OutcomeNoOp, nil
	}

	order, err := r.resolveOrder(ctx, event)
	if err != nil {
		return "", err
	}

	outcome, err := r.process(ctx, order, event)
	if err != nil {
		return "", err
	}

	// The delivery is recorded only once the transition has committed.
	// Claiming the event id any earlier would make redelivery, the
	// recovery path for transient failures, look like a duplicate.
	// A lock-contended skip is left unclaimed for the same reason.
	if outcome != OutcomeSkippedLocked {
		r.markDelivered(ctx, event)
	}
	return outcome, nil
}

// ProcessDeferredWebhook re-verifies a webhook that raced ahead of the
// synchronous request that records the order's intent linkage. The intent is
// re-fetched from the provider and validated against the delivery before the
// ordinary transition path runs.
func (r *Reconciler) ProcessDeferredWebhook(ctx context.Context, eventType string, data DeferredData) error {
	ctx, span := telemetry.Tracer.Start(ctx, "reconciler.process_deferred_webhook")
	defer span.End()

	if models.EventType(eventType) != models.EventIntentSucceeded {
		return &UnsupportedEventError{EventType: eventType}
	}

	if data.OrderID == "" {
		return &MissingFieldError{Field: "order_id", EventType: eventType, NotFound: true, Deferred: true}
	}
	order, err := r.repo.GetByID(ctx, data.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return &MissingFieldError{Field: "order_id", EventType: eventType, NotFound: true, Deferred: true}
	}
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", data.OrderID, err)
	}

	if data.IntentID == "" {
		return &MissingFieldError{Field: "intent_id", EventType: eventType, Deferred: true}
	}

	if order.PaymentIntentID == "" {
		// The order never recorded an intent; nothing to reconcile against.
		return nil
	}
	intent, err := r.fetcher.FetchIntent(ctx, order.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to fetch intent %s: %w", order.PaymentIntentID, err)
	}

	if intent.ID != data.IntentID {
		// The order has moved on to a newer intent; this delivery is stale
		// and superseded, not an error.
		telemetry.Logger.Info("Deferred webhook intent mismatch, skipping",
			zap.String("order_id", order.ID),
			zap.String("webhook_intent_id", data.IntentID),
			zap.String("order_intent_id", intent.ID),
		)
		return nil
	}

	event := &models.Event{
		Type:     models.EventDeferredIntentSucceeded,
		IntentID: intent.ID,
		OrderID:  order.ID,
	}
	if charge := intent.LatestCharge(); charge != nil {
		event.ChargeID = charge.ID
	}

	_, err = r.process(ctx, order, event)
	return err
}

// process runs the locked transition sequence: acquire, evaluate, persist
// status and notes as one unit, emit actions, publish, release.
func (r *Reconciler) process(ctx context.Context, order *models.Order, event *models.Event) (TransitionOutcome, error) {
	acquired, err := r.locker.Acquire(ctx, order, r.lockTTL)
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock for order %s: %w", order.ID, err)
	}
	if !acquired {
		telemetry.Logger.Info("Order locked by another handler, skipping event",
			zap.String("order_id", order.ID),
			zap.String("event_type", string(event.Type)),
		)
		telemetry.WebhookEvents.WithLabelValues(string(event.Type), string(OutcomeSkippedLocked)).Inc()
		return OutcomeSkippedLocked, nil
	}
	defer func() {
		if err := r.locker.Release(ctx, order); err != nil {
			telemetry.Logger.Error("Failed to release order lock",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
	}()

	decision, err := EvaluateTransition(order, event)
	if err != nil {
		return "", err
	}

	previousStatus := order.Status
	if decision.NewStatus != "" || len(decision.Notes) > 0 {
		if decision.NewStatus != "" {
			order.Status = decision.NewStatus
		}
		if err := r.repo.SaveTransition(ctx, order, decision.Notes); err != nil {
			order.Status = previousStatus
			return "", fmt.Errorf("failed to persist transition for order %s: %w", order.ID, err)
		}
	}

	// Side effects are emitted only once the decision is durable.
	for _, action := range decision.Actions {
		r.dispatcher.Emit(action, order, ActionContext{
			IntentID: event.IntentID,
			ChargeID: event.ChargeID,
		})
	}

	if decision.NewStatus != "" && decision.NewStatus != previousStatus {
		r.publishStatusChanged(ctx, order, previousStatus, event)
	}

	telemetry.WebhookEvents.WithLabelValues(string(event.Type), string(decision.Outcome)).Inc()
	telemetry.Logger.Info("Webhook event processed",
		zap.String("order_id", order.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("outcome", string(decision.Outcome)),
		zap.String("from_status", string(previousStatus)),
		zap.String("to_status", string(order.Status)),
	)

	return decision.Outcome, nil
}

// resolveOrder maps the event's canonical reference to an order record.
func (r *Reconciler) resolveOrder(ctx context.Context, event *models.Event) (*models.Order, error) {
	var (
		order *models.Order
		err   error
		ref   string
	)

	switch event.Type {
	case models.EventChargeFailed, models.EventChargeExpired, models.EventChargeDisputeCreated:
		if event.ChargeID == "" {
			return nil, &MissingFieldError{Field: "charge_id", EventType: string(event.Type)}
		}
		ref = event.ChargeID
		order, err = r.repo.GetByTransactionID(ctx, ref)
	default:
		if event.OrderID == "" {
			return nil, &MissingFieldError{Field: "order_id", EventType: string(event.Type)}
		}
		ref = event.OrderID
		order, err = r.repo.GetByID(ctx, ref)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &OrderNotFoundError{Reference: ref}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order for reference %s: %w", ref, err)
	}
	return order, nil
}

// alreadyDelivered reports whether this provider event id was fully processed
// before. This is a best-effort fast path: correctness still rests on the
// idempotent guards, so a Redis failure only means the guards do the work.
func (r *Reconciler) alreadyDelivered(ctx context.Context, event *models.Event) bool {
	if r.redisClient == nil || event.ID == "" {
		return false
	}
	exists, err := r.redisClient.Exists(ctx, dedupKey(event)).Result()
	if err != nil {
		telemetry.Logger.Warn("Duplicate-delivery check unavailable",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return false
	}
	return exists > 0
}

// markDelivered records the event id after a committed transition so later
// redeliveries of the same event short-circuit.
func (r *Reconciler) markDelivered(ctx context.Context, event *models.Event) {
	if r.redisClient == nil || event.ID == "" {
		return
	}
	if err := r.redisClient.Set(ctx, dedupKey(event), "1", 24*time.Hour).Err(); err != nil {
		telemetry.Logger.Warn("Failed to record processed delivery",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
}

func dedupKey(event *models.Event) string {
	return fmt.Sprintf("webhook_event:%s", event.ID)
}

// publishStatusChanged announces an applied transition to downstream
// consumers, best effort.
func (r *Reconciler) publishStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus, event *models.Event) {
	if r.kafkaWriter == nil {
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"order_id":        order.ID,
		"status":          order.Status,
		"previous_status": previous,
		"event_type":      event.Type,
		"timestamp":       time.Now(),
	})

	if err := r.kafkaWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
	}); err != nil {
		telemetry.Logger.Error("Failed to publish status change",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

// ConsumeDeferredWebhooks reads deferred webhook payloads enqueued by the
// checkout service and replays them through the deferred resolver.
func (r *Reconciler) ConsumeDeferredWebhooks(ctx context.Context, brokers, topic string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{brokers},
		Topic:    topic,
		GroupID:  "payment-reconciler",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	telemetry.Logger.Info("Started consuming deferred webhook events", zap.String("topic", topic))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			telemetry.Logger.Error("Error reading message from Kafka", zap.Error(err))
			continue
		}

		var deferred DeferredWebhookMessage
		if err := json.Unmarshal(msg.Value, &deferred); err != nil {
			telemetry.Logger.Error("Error unmarshaling deferred webhook", zap.Error(err))
			continue
		}

		if err := r.ProcessDeferredWebhook(ctx, deferred.Type, deferred.Data); err != nil {
			telemetry.Logger.Error("Error processing deferred webhook",
				zap.String("order_id", deferred.Data.OrderID),
				zap.String("intent_id", deferred.Data.IntentID),
				zap.Error(err),
			)
		}
	}
}
