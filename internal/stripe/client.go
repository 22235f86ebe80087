package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nicomollet/payment-reconciler/internal/models"
)

const defaultBaseURL = "https://api.stripe.com"

// Client is a minimal Stripe API client covering the re-fetch calls the
// deferred webhook path needs.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// intentResponse mirrors the API shape of a payment intent with its charges.
type intentResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Charges struct {
		Data []struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Captured bool   `json:"captured"`
		} `json:"data"`
	} `json:"charges"`
}

// FetchIntent retrieves the authoritative payment intent from Stripe.
func (c *Client) FetchIntent(ctx context.Context, intentID string) (*models.IntentSnapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s?%s",
		c.baseURL, url.PathEscape(intentID), url.Values{"expand[]": {"charges"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stripe returned status %d for intent %s", resp.StatusCode, intentID)
	}

	var raw intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode intent response: %w", err)
	}

	intent := &models.IntentSnapshot{
		ID:     raw.ID,
		Status: raw.Status,
	}
	for _, charge := range raw.Charges.Data {
		intent.Charges = append(intent.Charges, models.ChargeSnapshot{
			ID:       charge.ID,
			Status:   charge.Status,
			Captured: charge.Captured,
		})
	}
	return intent, nil
}
