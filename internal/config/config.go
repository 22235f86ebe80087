package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL         string
	RedisURL            string
	KafkaBrokers        string
	StatusTopic         string
	DeferredTopic       string
	StripeAPIKey        string
	StripeWebhookSecret string
	SignatureTolerance  time.Duration
	LockTTL             time.Duration
	Port                string
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	statusTopic := os.Getenv("STATUS_TOPIC")
	if statusTopic == "" {
		statusTopic = "order.status.changed"
	}

	deferredTopic := os.Getenv("DEFERRED_TOPIC")
	if deferredTopic == "" {
		deferredTopic = "stripe.webhooks.deferred"
	}

	lockTTL := 60 * time.Second
	if raw := os.Getenv("LOCK_TTL_SECONDS"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			lockTTL = time.Duration(seconds) * time.Second
		}
	}

	return &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		KafkaBrokers:        os.Getenv("KAFKA_BROKERS"),
		StatusTopic:         statusTopic,
		DeferredTopic:       deferredTopic,
		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SignatureTolerance:  5 * time.Minute,
		LockTTL:             lockTTL,
		Port:                port,
	}
}
