// Package dispatch delivers alerts to users. Push, email, and SMS hand the
// alert off to per-channel SQS queues consumed by downstream workers; Discord
// posts through the partner webhook relay. The dispatcher fans out over the
// requested channels and reports per-channel results without retrying;
// retry policy belongs to the caller.
package dispatch

import (
	"context"
	"fmt"

	"stockwatch/internal/types"
)

// Channel delivers one alert through a single mechanism.
type Channel interface {
	Type() types.ChannelType
	Send(ctx context.Context, alert *types.Alert, user *types.User) error
}

// Dispatcher fans an alert out across the requested channels sequentially,
// in the caller's preference order. Partial success counts as success; the
// failed subset is reported for observability.
type Dispatcher struct {
	channels map[types.ChannelType]Channel
	logger   types.Logger
}

// Compile-time assertion that Dispatcher implements types.Dispatcher.
var _ types.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher routing to the given channels.
func NewDispatcher(logger types.Logger, channels ...Channel) *Dispatcher {
	byType := make(map[types.ChannelType]Channel, len(channels))
	for _, ch := range channels {
		byType[ch.Type()] = ch
	}
	return &Dispatcher{channels: byType, logger: logger}
}

// DeliverAlert attempts delivery on every requested channel and reports the
// per-channel outcome. Success means at least one channel accepted the alert.
func (d *Dispatcher) DeliverAlert(ctx context.Context, alert *types.Alert, user *types.User, channels []types.ChannelType) (types.DeliveryResult, error) {
	if len(channels) == 0 {
		return types.DeliveryResult{Success: false, Error: "no channels requested"}, nil
	}

	var result types.DeliveryResult
	var firstErr string
	for _, ct := range channels {
		ch, ok := d.channels[ct]
		if !ok {
			result.FailedChannels = append(result.FailedChannels, ct)
			if firstErr == "" {
				firstErr = fmt.Sprintf("channel %s is not configured", ct)
			}
			continue
		}
		if err := ch.Send(ctx, alert, user); err != nil {
			d.logger.Warn("channel delivery failed",
				"error", err.Error(),
				"alert_id", alert.ID,
				"channel", string(ct),
			)
			result.FailedChannels = append(result.FailedChannels, ct)
			if firstErr == "" {
				firstErr = err.Error()
			}
			continue
		}
		result.SuccessfulChannels = append(result.SuccessfulChannels, ct)
	}

	result.Success = len(result.SuccessfulChannels) > 0
	if !result.Success {
		result.Error = firstErr
	}
	return result, nil
}
