package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"stockwatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// DeliveryMessage is the envelope placed on a channel queue for the
// downstream delivery worker.
type DeliveryMessage struct {
	AlertID    string              `json:"alert_id"`
	UserID     string              `json:"user_id"`
	Email      string              `json:"email,omitempty"`
	Channel    types.ChannelType   `json:"channel"`
	Type       types.AlertType     `json:"type"`
	Priority   types.AlertPriority `json:"priority"`
	Data       types.AlertData     `json:"data"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
	TraceID    string              `json:"trace_id,omitempty"`
}

// QueueChannel publishes delivery messages to one per-channel SQS queue.
// Web push, email, and SMS are all queue-backed; the worker fleet behind
// each queue owns provider-specific delivery.
type QueueChannel struct {
	channelType types.ChannelType
	client      SQSSender
	queueURL    string
	clock       types.Clock
	logger      types.Logger
}

var _ Channel = (*QueueChannel)(nil)

// NewQueueChannel creates a queue-backed delivery channel.
func NewQueueChannel(channelType types.ChannelType, client SQSSender, queueURL string, clock types.Clock, logger types.Logger) *QueueChannel {
	return &QueueChannel{
		channelType: channelType,
		client:      client,
		queueURL:    queueURL,
		clock:       clock,
		logger:      logger,
	}
}

func (c *QueueChannel) Type() types.ChannelType { return c.channelType }

// Send serializes the delivery envelope and publishes it to the channel
// queue. Enqueue success is delivery success from the pipeline's view; the
// downstream worker owns provider failures.
func (c *QueueChannel) Send(ctx context.Context, alert *types.Alert, user *types.User) error {
	msg := DeliveryMessage{
		AlertID:    alert.ID,
		UserID:     user.ID,
		Email:      user.Email,
		Channel:    c.channelType,
		Type:       alert.Type,
		Priority:   alert.Priority,
		Data:       alert.Data,
		EnqueuedAt: c.clock.Now(),
		TraceID:    types.GetRequestID(ctx),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal delivery message for alert %s: %w", alert.ID, err)
	}

	_, err = c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue,
			fmt.Sprintf("failed to enqueue %s delivery", c.channelType), err)
	}

	c.logger.Info("delivery message enqueued",
		"alert_id", alert.ID,
		"channel", string(c.channelType),
		"priority", string(alert.Priority),
	)
	return nil
}
