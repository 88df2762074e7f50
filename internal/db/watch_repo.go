package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stockwatch/internal/types"
)

// WatchRepository provides data access for the watches table. The alert
// pipeline only ever mutates the two delivery-stat columns; everything else
// belongs to the watch CRUD surface that lives outside this service.
type WatchRepository struct {
	db DBTX
}

// NewWatchRepository creates a new WatchRepository backed by the given
// database connection (pool or transaction).
func NewWatchRepository(db DBTX) *WatchRepository {
	return &WatchRepository{db: db}
}

// GetByID returns a single watch or a not-found AppError.
func (r *WatchRepository) GetByID(ctx context.Context, id string) (*types.Watch, error) {
	row := r.db.QueryRow(ctx, `SELECT `+watchColumns+` FROM watches WHERE id = $1`, id)
	w, err := scanWatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundWatch, fmt.Sprintf("watch %s not found", id), nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load watch", err)
	}
	return w, nil
}

// ListByUser returns a bounded page of the user's watches, newest first.
func (r *WatchRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*types.Watch, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+watchColumns+` FROM watches
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list watches", err)
	}
	return collectWatches(rows)
}

// RecordDelivery atomically bumps alert_count and sets last_alerted. This is
// the single write the orchestrator performs on a watch, and only on the
// confirmed-delivery path.
func (r *WatchRepository) RecordDelivery(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE watches SET
			alert_count = alert_count + 1,
			last_alerted = $2,
			updated_at = NOW()
		 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record watch delivery", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundWatch, "watch not found", nil)
	}
	return nil
}

// Counts returns (total, active) watch counts for the system health report.
func (r *WatchRepository) Counts(ctx context.Context) (total int, active int, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM watches`,
	).Scan(&total, &active)
	if err != nil {
		return 0, 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count watches", err)
	}
	return total, active, nil
}

// SampleActiveIDs returns up to n random active watch IDs. The health monitor
// checks this sample instead of every active watch; the estimate it produces
// is a deliberate accuracy/cost trade-off.
func (r *WatchRepository) SampleActiveIDs(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id FROM watches WHERE is_active ORDER BY random() LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to sample watches", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan watch id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating watch ids", err)
	}
	return ids, nil
}

// DeactivateOrphaned soft-deactivates active watches whose product is missing
// or inactive. Returns the count of watches deactivated. Running it twice in
// a row changes nothing on the second pass: the WHERE clause only matches
// still-active rows.
func (r *WatchRepository) DeactivateOrphaned(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE watches SET is_active = FALSE, updated_at = NOW()
		 WHERE is_active
		   AND NOT EXISTS (
		       SELECT 1 FROM products p
		       WHERE p.id = watches.product_id AND p.is_active
		   )`,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to deactivate orphaned watches", err)
	}
	return tag.RowsAffected(), nil
}

// watchColumns is the canonical select list shared by every watch query.
const watchColumns = `id, user_id, product_id, retailer_ids, max_price,
	availability_type, zip_code, radius_miles, alert_preferences, is_active,
	alert_count, last_alerted, created_at, updated_at`

// scanWatch scans a single watch row. Handles nullable columns using pointer
// types.
func scanWatch(row pgx.Row) (*types.Watch, error) {
	var (
		w           types.Watch
		maxPrice    *float64
		availType   *string
		zipCode     *string
		radius      *int
		prefs       []byte
		lastAlerted *time.Time
	)

	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.ProductID,
		&w.RetailerIDs,
		&maxPrice,
		&availType,
		&zipCode,
		&radius,
		&prefs,
		&w.IsActive,
		&w.AlertCount,
		&lastAlerted,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.MaxPrice = maxPrice
	if availType != nil {
		w.AvailabilityType = types.AvailabilityType(*availType)
	}
	if zipCode != nil {
		w.ZipCode = *zipCode
	}
	w.RadiusMiles = radius
	if len(prefs) > 0 {
		_ = json.Unmarshal(prefs, &w.AlertPreferences)
	}
	w.LastAlerted = lastAlerted

	return &w, nil
}

// collectWatches drains a pgx.Rows result set into a slice.
func collectWatches(rows pgx.Rows) ([]*types.Watch, error) {
	defer rows.Close()

	var results []*types.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan watch row", err)
		}
		results = append(results, w)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating watch rows", err)
	}
	return results, nil
}
