// Package alerts implements the alert generation and delivery orchestration
// core. A monitoring signal enters through GenerateAlert, passes the
// validation, deduplication, and rate-limit gates in strict order, and is
// either delivered immediately, deferred around the user's quiet hours, or
// parked for the retry job. The package also owns the per-type priority and
// channel strategies and the pipeline metrics.
package alerts

import (
	"context"
	"time"

	"stockwatch/internal/types"
)

// AlertStore is the persistence surface the orchestrator needs from the
// alerts table. It is a subset of the full AlertRepository; depending on this
// narrow interface keeps the orchestrator testable with lightweight mocks.
type AlertStore interface {
	// Create inserts a pending alert. The insert is conditional on no
	// equivalent live alert existing inside dedupWindow and returns
	// db.ErrDuplicateAlert when one does.
	Create(ctx context.Context, a *types.Alert, dedupWindow time.Duration) error

	GetByID(ctx context.Context, id string) (*types.Alert, error)

	// FindRecentDuplicate returns the newest live alert for the dedup key
	// created at or after since, or nil.
	FindRecentDuplicate(ctx context.Context, userID, productID, retailerID string, alertType types.AlertType, since time.Time) (*types.Alert, error)

	// CountCreatedSince counts the user's alerts created at or after since.
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)

	MarkSent(ctx context.Context, id string, channels []types.ChannelType) error
	MarkFailed(ctx context.Context, id string, reason string) error
	Reschedule(ctx context.Context, id string, at time.Time) error
	IncrementRetry(ctx context.Context, id string) error

	ListDuePending(ctx context.Context, now time.Time, limit int) ([]*types.Alert, error)
	ListRetryableFailed(ctx context.Context, maxAttempts, limit int) ([]*types.Alert, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*types.Alert, error)
}

// WatchStore is the persistence surface the orchestrator needs from watches.
type WatchStore interface {
	GetByID(ctx context.Context, id string) (*types.Watch, error)
	// RecordDelivery atomically bumps alert_count and sets last_alerted.
	RecordDelivery(ctx context.Context, id string, at time.Time) error
}

// UserStore is the read surface for alert recipients.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
}

// ProductStore is the read surface for catalog products.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*types.Product, error)
}

// GenerateAlertInput carries one monitoring signal into the orchestrator.
type GenerateAlertInput struct {
	UserID     string          `json:"user_id"`
	ProductID  string          `json:"product_id"`
	RetailerID string          `json:"retailer_id"`
	Type       types.AlertType `json:"type"`
	WatchID    string          `json:"watch_id,omitempty"`
	// Priority overrides the strategy-computed priority when set.
	Priority types.AlertPriority `json:"priority,omitempty"`
	Data     types.AlertData     `json:"data"`
}

// GenerateAlertResult is the caller-visible outcome of one signal.
type GenerateAlertResult struct {
	Outcome      types.GenerateOutcome `json:"outcome"`
	AlertID      string                `json:"alert_id"`
	ScheduledFor *time.Time            `json:"scheduled_for,omitempty"`
	Channels     []types.ChannelType   `json:"channels,omitempty"`
	Reason       string                `json:"reason,omitempty"`
}

// ProcessOutcome classifies a single ProcessAlert run.
type ProcessOutcome string

const (
	ProcessDelivered   ProcessOutcome = "delivered"
	ProcessRescheduled ProcessOutcome = "rescheduled"
	ProcessFailed      ProcessOutcome = "failed"
)

// ProcessResult is the structured outcome of ProcessAlert. Internal errors
// are recovered into a failed result rather than propagated; the alert row
// carries the same failure reason.
type ProcessResult struct {
	Outcome      ProcessOutcome      `json:"outcome"`
	AlertID      string              `json:"alert_id"`
	Channels     []types.ChannelType `json:"channels,omitempty"`
	ScheduledFor *time.Time          `json:"scheduled_for,omitempty"`
	Reason       string              `json:"reason,omitempty"`
}

// Success reports whether the alert was actually delivered.
func (r ProcessResult) Success() bool { return r.Outcome == ProcessDelivered }

// BatchResult aggregates one pass of ProcessPendingAlerts or
// RetryFailedAlerts. A single alert's failure never aborts the batch.
type BatchResult struct {
	Processed   int `json:"processed"`
	Failed      int `json:"failed"`
	Rescheduled int `json:"rescheduled"`
	Exhausted   int `json:"exhausted,omitempty"` // retries that hit the permanent cap
}

// Total returns the number of alerts the pass touched.
func (b BatchResult) Total() int {
	return b.Processed + b.Failed + b.Rescheduled
}
