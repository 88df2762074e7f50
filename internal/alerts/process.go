package alerts

import (
	"context"
	"fmt"

	"stockwatch/internal/types"
)

// ProcessAlert attempts delivery of one pending alert. It re-checks quiet
// hours, resolves the channel set through the type strategy, dispatches, and
// records the outcome on the alert row. Errors are recovered into a failed
// result; the alert row carries the same reason for the retry job.
func (o *Orchestrator) ProcessAlert(ctx context.Context, alertID string) ProcessResult {
	alert, err := o.alerts.GetByID(ctx, alertID)
	if err != nil {
		return o.failAlert(ctx, alertID, fmt.Sprintf("alert load failed: %v", err))
	}

	// A scheduled alert may be due now; a fresh one may have crossed into a
	// quiet window since creation.
	quiet, err := o.quiet.IsQuietTime(ctx, alert.UserID)
	if err != nil {
		return o.failAlert(ctx, alert.ID, fmt.Sprintf("quiet hours check failed: %v", err))
	}
	if quiet.IsQuietTime {
		deferUntil := o.clock.Now().Add(o.quietFallback)
		if quiet.NextActiveTime != nil {
			deferUntil = *quiet.NextActiveTime
		}
		if err := o.alerts.Reschedule(ctx, alert.ID, deferUntil); err != nil {
			return o.failAlert(ctx, alert.ID, fmt.Sprintf("reschedule failed: %v", err))
		}
		return ProcessResult{
			Outcome:      ProcessRescheduled,
			AlertID:      alert.ID,
			ScheduledFor: &deferUntil,
			Reason:       quiet.Reason,
		}
	}

	user, err := o.users.GetByID(ctx, alert.UserID)
	if err != nil {
		if types.IsNotFound(err) {
			return o.failAlert(ctx, alert.ID, "user not found")
		}
		return o.failAlert(ctx, alert.ID, fmt.Sprintf("user load failed: %v", err))
	}

	channels := strategyFor(alert.Type).DeliveryChannels(user, alert)
	if len(channels) == 0 {
		return o.failAlert(ctx, alert.ID, "no delivery channels available")
	}

	delivery, err := o.dispatcher.DeliverAlert(ctx, alert, user, channels)
	if err != nil {
		return o.failAlert(ctx, alert.ID, fmt.Sprintf("dispatch error: %v", err))
	}
	if !delivery.Success {
		reason := delivery.Error
		if reason == "" {
			reason = "delivery failed on all channels"
		}
		return o.failAlert(ctx, alert.ID, reason)
	}

	if err := o.alerts.MarkSent(ctx, alert.ID, delivery.SuccessfulChannels); err != nil {
		return o.failAlert(ctx, alert.ID, fmt.Sprintf("mark sent failed: %v", err))
	}
	// Watch counters move only on the confirmed success path.
	if alert.WatchID != "" {
		if err := o.watches.RecordDelivery(ctx, alert.WatchID, o.clock.Now()); err != nil {
			o.logger.Error("failed to record watch delivery",
				"error", err.Error(),
				"alert_id", alert.ID,
				"watch_id", alert.WatchID,
			)
		}
	}

	o.logger.Info("alert delivered",
		"alert_id", alert.ID,
		"user_id", alert.UserID,
		"type", string(alert.Type),
		"channels", channelNames(delivery.SuccessfulChannels),
	)
	o.metrics.RecordDelivery(ctx, alert.Type, delivery.SuccessfulChannels, delivery.FailedChannels)

	return ProcessResult{
		Outcome:  ProcessDelivered,
		AlertID:  alert.ID,
		Channels: delivery.SuccessfulChannels,
	}
}

// failAlert marks the alert failed with reason and returns the matching
// result. A failure while recording failure is logged and otherwise dropped;
// the row stays pending and the batch job will pick it up again.
func (o *Orchestrator) failAlert(ctx context.Context, alertID, reason string) ProcessResult {
	if err := o.alerts.MarkFailed(ctx, alertID, reason); err != nil {
		o.logger.Error("failed to mark alert failed",
			"error", err.Error(),
			"alert_id", alertID,
			"reason", reason,
		)
	}
	o.metrics.RecordDeliveryFailure(ctx)
	return ProcessResult{
		Outcome: ProcessFailed,
		AlertID: alertID,
		Reason:  reason,
	}
}

// ProcessPendingAlerts runs one delivery pass over due pending alerts. Alerts
// with a future scheduled_for are skipped by the query. One alert's failure
// never aborts the rest of the batch.
func (o *Orchestrator) ProcessPendingAlerts(ctx context.Context, limit int) (BatchResult, error) {
	pending, err := o.alerts.ListDuePending(ctx, o.clock.Now(), limit)
	if err != nil {
		return BatchResult{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list pending alerts", err)
	}

	var result BatchResult
	for _, alert := range pending {
		switch o.ProcessAlert(ctx, alert.ID).Outcome {
		case ProcessDelivered:
			result.Processed++
		case ProcessRescheduled:
			result.Rescheduled++
		default:
			result.Failed++
		}
	}
	if result.Total() > 0 {
		o.logger.Info("pending alert pass complete",
			"processed", result.Processed,
			"failed", result.Failed,
			"rescheduled", result.Rescheduled,
		)
	}
	return result, nil
}

// RetryFailedAlerts re-attempts delivery of failed alerts that still have
// retry budget. Every attempt increments retry_count regardless of outcome;
// an alert that exhausts the budget is permanently failed and excluded from
// future passes.
func (o *Orchestrator) RetryFailedAlerts(ctx context.Context, limit int) (BatchResult, error) {
	failed, err := o.alerts.ListRetryableFailed(ctx, o.maxRetries, limit)
	if err != nil {
		return BatchResult{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list retryable alerts", err)
	}

	var result BatchResult
	for _, alert := range failed {
		if err := o.alerts.IncrementRetry(ctx, alert.ID); err != nil {
			o.logger.Error("failed to increment retry count",
				"error", err.Error(),
				"alert_id", alert.ID,
			)
			result.Failed++
			continue
		}

		res := o.ProcessAlert(ctx, alert.ID)
		switch res.Outcome {
		case ProcessDelivered:
			result.Processed++
		case ProcessRescheduled:
			result.Rescheduled++
		default:
			result.Failed++
			if alert.RetryCount+1 >= o.maxRetries {
				if err := o.alerts.MarkFailed(ctx, alert.ID, "max retry attempts exceeded"); err != nil {
					o.logger.Error("failed to mark alert permanently failed",
						"error", err.Error(),
						"alert_id", alert.ID,
					)
				}
				result.Exhausted++
			}
		}
	}
	if result.Total() > 0 {
		o.logger.Info("retry pass complete",
			"recovered", result.Processed,
			"failed", result.Failed,
			"exhausted", result.Exhausted,
		)
	}
	return result, nil
}

func channelNames(channels []types.ChannelType) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}
