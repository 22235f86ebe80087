package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicomollet/payment-reconciler/internal/handlers"
	"github.com/nicomollet/payment-reconciler/internal/interfaces"
	"github.com/nicomollet/payment-reconciler/internal/service"
	"github.com/nicomollet/payment-reconciler/internal/telemetry"
)

func NewRouter(repo interfaces.OrderRepository, verifier interfaces.SignatureVerifier, reconciler *service.Reconciler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "payment-reconciler"})
	})

	// Webhook routes
	webhookHandler := handlers.NewWebhookHandler(verifier, reconciler)
	r.POST("/webhook", webhookHandler.HandleWebhook)
	r.POST("/webhook/deferred", webhookHandler.HandleDeferredWebhook)

	// Order state
	stateHandler := handlers.NewOrderStateHandler(repo)
	r.GET("/orders/:id/state", stateHandler.GetOrderState)

	return r
}
