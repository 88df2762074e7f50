package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stockwatch/internal/types"
)

// WebhookPayload is the JSON body posted to the partner relay for channels
// delivered out-of-band (Discord).
type WebhookPayload struct {
	AlertID    string              `json:"alert_id"`
	UserID     string              `json:"user_id"`
	Channel    types.ChannelType   `json:"channel"`
	Type       types.AlertType     `json:"type"`
	Priority   types.AlertPriority `json:"priority"`
	Data       types.AlertData     `json:"data"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// WebhookClient posts alert payloads to the partner webhook relay through the
// resilient BaseClient.
type WebhookClient struct {
	base *BaseClient
	url  string
}

// NewWebhookClient creates a client targeting the partner relay endpoint.
func NewWebhookClient(base *BaseClient, url string) *WebhookClient {
	return &WebhookClient{base: base, url: url}
}

// Post sends one payload to the relay. Non-2xx responses that survive the
// BaseClient's retry policy are returned as upstream errors.
func (c *WebhookClient) Post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewAppError(types.ErrCodeUpstreamPartner,
			fmt.Sprintf("partner relay rejected payload with status %d", resp.StatusCode), nil)
	}
	return nil
}
