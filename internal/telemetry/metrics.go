package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	// WebhookEvents counts processed webhook events by type and outcome.
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_webhook_events_total",
			Help: "Webhook events processed, labeled by event type and transition outcome.",
		},
		[]string{"event_type", "outcome"},
	)

	// ActionsDispatched counts emitted side-effect signals by action name.
	ActionsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_actions_dispatched_total",
			Help: "Side-effect actions emitted to fulfillment subscribers.",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(WebhookEvents, ActionsDispatched)
}
