package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nicomollet/payment-reconciler/internal/interfaces"
	"github.com/nicomollet/payment-reconciler/internal/service"
	"github.com/nicomollet/payment-reconciler/internal/telemetry"
)

type WebhookHandler struct {
	verifier   interfaces.SignatureVerifier
	reconciler *service.Reconciler
}

func NewWebhookHandler(verifier interfaces.SignatureVerifier, reconciler *service.Reconciler) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		reconciler: reconciler,
	}
}

// HandleWebhook receives a raw provider webhook, verifies its signature and
// runs it through the reconciliation core. Non-2xx responses trigger provider
// redelivery, so only genuinely fatal conditions return them.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if err := h.verifier.Verify(body, c.GetHeader("Stripe-Signature")); err != nil {
		telemetry.Logger.Warn("Webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	event, err := service.ClassifyEvent(body)
	if err != nil {
		h.renderError(c, err)
		return
	}

	deliveryID := event.ID
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	outcome, err := h.reconciler.ProcessWebhook(c.Request.Context(), event)
	if err != nil {
		telemetry.Logger.Error("Error processing webhook",
			zap.String("delivery_id", deliveryID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":    true,
		"delivery_id": deliveryID,
		"outcome":     outcome,
	})
}

// HandleDeferredWebhook accepts a deferred webhook replay from the checkout
// service, for deployments that call back over HTTP instead of Kafka.
func (h *WebhookHandler) HandleDeferredWebhook(c *gin.Context) {
	var msg service.DeferredWebhookMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.reconciler.ProcessDeferredWebhook(c.Request.Context(), msg.Type, msg.Data); err != nil {
		telemetry.Logger.Error("Error processing deferred webhook",
			zap.String("order_id", msg.Data.OrderID),
			zap.Error(err),
		)
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) renderError(c *gin.Context, err error) {
	var (
		unsupported  *service.UnsupportedEventError
		missingField *service.MissingFieldError
		notFound     *service.OrderNotFoundError
	)
	switch {
	case errors.As(err, &unsupported), errors.As(err, &missingField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
	}
}
