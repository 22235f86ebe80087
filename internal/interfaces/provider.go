package interfaces

import (
	"context"

	"github.com/nicomollet/payment-reconciler/internal/models"
)

// IntentFetcher re-fetches authoritative payment state from the provider,
// used when the order's own record is not sufficient (deferred webhooks).
type IntentFetcher interface {
	FetchIntent(ctx context.Context, intentID string) (*models.IntentSnapshot, error)
}

// SignatureVerifier validates that a raw webhook payload was signed by the
// provider. Verification failures are returned as errors.
type SignatureVerifier interface {
	Verify(payload []byte, signatureHeader string) error
}
