package dispatch

import (
	"context"

	"stockwatch/internal/external"
	"stockwatch/internal/types"
)

// WebhookRelay is the outbound surface the Discord channel needs from the
// partner relay client.
type WebhookRelay interface {
	Post(ctx context.Context, payload external.WebhookPayload) error
}

// WebhookChannel delivers Discord alerts synchronously through the partner
// webhook relay. Resilience (retries, circuit breaking) lives in the relay
// client, not here.
type WebhookChannel struct {
	relay WebhookRelay
	clock types.Clock
}

var _ Channel = (*WebhookChannel)(nil)

// NewWebhookChannel creates the Discord delivery channel.
func NewWebhookChannel(relay WebhookRelay, clock types.Clock) *WebhookChannel {
	return &WebhookChannel{relay: relay, clock: clock}
}

func (c *WebhookChannel) Type() types.ChannelType { return types.ChannelDiscord }

func (c *WebhookChannel) Send(ctx context.Context, alert *types.Alert, user *types.User) error {
	return c.relay.Post(ctx, external.WebhookPayload{
		AlertID:    alert.ID,
		UserID:     user.ID,
		Channel:    types.ChannelDiscord,
		Type:       alert.Type,
		Priority:   alert.Priority,
		Data:       alert.Data,
		OccurredAt: c.clock.Now(),
	})
}
