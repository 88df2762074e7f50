package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"stockwatch/internal/types"
)

// AlertRepository provides data access for the alerts table. Alerts are the
// write-heavy heart of the pipeline: the orchestrator creates them, the
// delivery path flips their status, and the retry and cleanup jobs sweep them.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new AlertRepository backed by the given
// database connection (pool or transaction).
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert row. If the ID is empty, a prefixed UUID is
// generated. CreatedAt/UpdatedAt default to NOW() when unset.
//
// The insert carries a NOT EXISTS guard over the deduplication key
// (user, product, retailer, type) within the dedup window: a concurrent
// generate call that already committed an equivalent live alert makes this
// insert affect zero rows, in which case ErrDuplicateAlert is returned. This
// closes the read-then-write race at the storage layer.
func (r *AlertRepository) Create(ctx context.Context, a *types.Alert, dedupWindow time.Duration) error {
	if a.ID == "" {
		a.ID = "alrt_" + uuid.New().String()
	}
	if a.Status == "" {
		a.Status = types.AlertStatusPending
	}

	payload, err := json.Marshal(a.Data)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to encode alert data", err)
	}

	tag, err := r.db.Exec(ctx,
		`INSERT INTO alerts
		 (id, user_id, product_id, retailer_id, watch_id, type, priority,
		  status, data, retry_count, scheduled_for, failure_reason,
		  created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()
		 WHERE NOT EXISTS (
		     SELECT 1 FROM alerts
		     WHERE user_id = $2 AND product_id = $3 AND retailer_id = $4
		       AND type = $6
		       AND status IN ('pending', 'sent')
		       AND created_at >= NOW() - $13::interval
		 )`,
		a.ID,
		a.UserID,
		a.ProductID,
		a.RetailerID,
		nilIfEmpty(a.WatchID),
		string(a.Type),
		string(a.Priority),
		string(a.Status),
		payload,
		a.RetryCount,
		a.ScheduledFor,
		nilIfEmpty(a.FailureReason),
		dedupWindow.String(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create alert", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateAlert
	}
	return nil
}

// ErrDuplicateAlert is returned by Create when an equivalent live alert
// already exists inside the deduplication window.
var ErrDuplicateAlert = errors.New("duplicate alert within dedup window")

// GetByID returns a single alert or a not-found AppError.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*types.Alert, error) {
	row := r.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAlert, fmt.Sprintf("alert %s not found", id), nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load alert", err)
	}
	return a, nil
}

// FindRecentDuplicate returns the most recent live alert matching the
// deduplication key (user, product, retailer, type) created at or after
// `since`, or nil when no such alert exists. Only 'pending' and 'sent'
// alerts count as live; failed and deduplicated rows never suppress a new
// signal.
func (r *AlertRepository) FindRecentDuplicate(ctx context.Context, userID, productID, retailerID string, alertType types.AlertType, since time.Time) (*types.Alert, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = $1 AND product_id = $2 AND retailer_id = $3 AND type = $4
		   AND status IN ('pending', 'sent')
		   AND created_at >= $5
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, productID, retailerID, string(alertType), since,
	)
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query duplicate alerts", err)
	}
	return a, nil
}

// CountCreatedSince counts alerts created for the user at or after `since`.
// Deduplicated results never create rows, so they do not count against the
// rate limit.
func (r *AlertRepository) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count recent alerts", err)
	}
	return count, nil
}

// MarkSent flips the alert to 'sent', recording the channels that actually
// delivered and clearing any scheduled_for and failure_reason left over from
// deferral or earlier attempts.
func (r *AlertRepository) MarkSent(ctx context.Context, id string, channels []types.ChannelType) error {
	chs := make([]string, len(channels))
	for i, c := range channels {
		chs[i] = string(c)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE alerts SET
			status = 'sent',
			delivery_channels = $2,
			scheduled_for = NULL,
			failure_reason = NULL,
			updated_at = NOW()
		 WHERE id = $1`,
		id, chs,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark alert sent", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
	}
	return nil
}

// MarkFailed flips the alert to 'failed' with the given reason.
func (r *AlertRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alerts SET
			status = 'failed',
			failure_reason = $2,
			updated_at = NOW()
		 WHERE id = $1`,
		id, reason,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark alert failed", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
	}
	return nil
}

// Reschedule records a new scheduled_for instant on a still-pending alert.
func (r *AlertRepository) Reschedule(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alerts SET
			status = 'pending',
			scheduled_for = $2,
			updated_at = NOW()
		 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to reschedule alert", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
	}
	return nil
}

// IncrementRetry bumps retry_count by one. Every retry attempt counts,
// regardless of outcome.
func (r *AlertRepository) IncrementRetry(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE alerts SET retry_count = retry_count + 1, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to increment retry count", err)
	}
	return nil
}

// ListDuePending returns pending alerts whose scheduled_for has passed (or was
// never set), oldest first. Used by the pending-alert processing job.
func (r *AlertRepository) ListDuePending(ctx context.Context, now time.Time, limit int) ([]*types.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE status = 'pending'
		   AND (scheduled_for IS NULL OR scheduled_for <= $1)
		 ORDER BY created_at
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list due pending alerts", err)
	}
	return collectAlerts(rows)
}

// ListRetryableFailed returns failed alerts whose retry_count is still below
// maxAttempts, oldest first. Alerts at or beyond the cap are permanently
// failed and excluded here.
func (r *AlertRepository) ListRetryableFailed(ctx context.Context, maxAttempts, limit int) ([]*types.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE status = 'failed' AND retry_count < $1
		 ORDER BY updated_at
		 LIMIT $2`,
		maxAttempts, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list retryable alerts", err)
	}
	return collectAlerts(rows)
}

// ListByUser returns the user's alerts, newest first.
func (r *AlertRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*types.Alert, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alerts", err)
	}
	return collectAlerts(rows)
}

// ListBefore returns alerts created before the cutoff, oldest first, for
// retention archival.
func (r *AlertRepository) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]*types.Alert, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE created_at < $1
		 ORDER BY created_at
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alerts for archival", err)
	}
	return collectAlerts(rows)
}

// DeleteByIDs hard-deletes alerts by ID after archival. Returns the count of
// deleted rows.
func (r *AlertRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM alerts WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete alerts", err)
	}
	return tag.RowsAffected(), nil
}

// alertColumns is the canonical select list shared by every alert query.
const alertColumns = `id, user_id, product_id, retailer_id, watch_id, type,
	priority, status, data, delivery_channels, retry_count, scheduled_for,
	failure_reason, created_at, updated_at`

// scanAlert scans a single alert row. Handles nullable columns using pointer
// types.
func scanAlert(row pgx.Row) (*types.Alert, error) {
	var (
		a             types.Alert
		watchID       *string
		alertType     string
		priority      string
		status        string
		payload       []byte
		channels      []string
		scheduledFor  *time.Time
		failureReason *string
	)

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.ProductID,
		&a.RetailerID,
		&watchID,
		&alertType,
		&priority,
		&status,
		&payload,
		&channels,
		&a.RetryCount,
		&scheduledFor,
		&failureReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if watchID != nil {
		a.WatchID = *watchID
	}
	a.Type = types.AlertType(alertType)
	a.Priority = types.AlertPriority(priority)
	a.Status = types.AlertStatus(status)
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &a.Data)
	}
	for _, c := range channels {
		a.DeliveryChannels = append(a.DeliveryChannels, types.ChannelType(c))
	}
	a.ScheduledFor = scheduledFor
	if failureReason != nil {
		a.FailureReason = *failureReason
	}

	return &a, nil
}

// collectAlerts drains a pgx.Rows result set into a slice.
func collectAlerts(rows pgx.Rows) ([]*types.Alert, error) {
	defer rows.Close()

	var results []*types.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert row", err)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating alert rows", err)
	}
	return results, nil
}
