package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nicomollet/payment-reconciler/internal/api"
	"github.com/nicomollet/payment-reconciler/internal/config"
	"github.com/nicomollet/payment-reconciler/internal/models"
	"github.com/nicomollet/payment-reconciler/internal/repository"
	"github.com/nicomollet/payment-reconciler/internal/service"
	"github.com/nicomollet/payment-reconciler/internal/stripe"
	"github.com/nicomollet/payment-reconciler/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry("payment-reconciler"); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Payment Reconciler")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repository
	repo := repository.NewOrderRepository(db)
	if err := repo.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	// Kafka writers: applied transitions and emitted fulfillment actions
	statusWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers),
		Topic:    cfg.StatusTopic,
		Balancer: &kafka.LeastBytes{},
	}
	defer statusWriter.Close()

	actionWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers),
		Topic:    "payment.actions",
		Balancer: &kafka.LeastBytes{},
	}
	defer actionWriter.Close()

	// Fulfillment subscribers: forward side-effect signals to Kafka so
	// order-fulfillment services can act on them out of process.
	dispatcher := service.NewDispatcher()
	forward := func(action service.Action) service.ActionHandler {
		return func(order *models.Order, actionCtx service.ActionContext) {
			payload, _ := json.Marshal(map[string]interface{}{
				"action":    action,
				"order_id":  order.ID,
				"intent_id": actionCtx.IntentID,
				"charge_id": actionCtx.ChargeID,
				"timestamp": time.Now(),
			})
			if err := actionWriter.WriteMessages(context.Background(), kafka.Message{
				Key:   []byte(order.ID),
				Value: payload,
			}); err != nil {
				telemetry.Logger.Error("Failed to forward action",
					zap.String("action", string(action)),
					zap.String("order_id", order.ID),
					zap.Error(err),
				)
			}
		}
	}
	dispatcher.Subscribe(service.ActionProcessPayment, forward(service.ActionProcessPayment))
	dispatcher.Subscribe(service.ActionPaymentIntentIncomplete, forward(service.ActionPaymentIntentIncomplete))

	// Provider client and webhook signature verification
	stripeClient := stripe.NewClient(cfg.StripeAPIKey)
	verifier := stripe.NewSignatureVerifier(cfg.StripeWebhookSecret, cfg.SignatureTolerance)

	// Reconciliation core
	reconciler := service.NewReconciler(repo, stripeClient, dispatcher, redisClient, statusWriter, cfg.LockTTL)

	// Consume deferred webhooks enqueued by the checkout service
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go reconciler.ConsumeDeferredWebhooks(consumerCtx, cfg.KafkaBrokers, cfg.DeferredTopic)

	// Setup HTTP server
	r := api.NewRouter(repo, verifier, reconciler)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Payment Reconciler starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	stopConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
