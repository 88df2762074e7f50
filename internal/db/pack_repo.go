package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stockwatch/internal/types"
)

// WatchPackRepository provides data access for the watch_packs and
// pack_subscriptions tables. The health monitor is its only consumer inside
// this service.
type WatchPackRepository struct {
	db DBTX
}

// NewWatchPackRepository creates a new WatchPackRepository backed by the given
// database connection (pool or transaction).
func NewWatchPackRepository(db DBTX) *WatchPackRepository {
	return &WatchPackRepository{db: db}
}

// GetByID returns a single pack or a not-found AppError.
func (r *WatchPackRepository) GetByID(ctx context.Context, id string) (*types.WatchPack, error) {
	var p types.WatchPack
	err := r.db.QueryRow(ctx,
		`SELECT id, name, product_ids, subscriber_count, is_active, created_at, updated_at
		 FROM watch_packs WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.ProductIDs, &p.SubscriberCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPack, fmt.Sprintf("watch pack %s not found", id), nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load watch pack", err)
	}
	return &p, nil
}

// Counts returns (total, active) pack counts for the system health report.
func (r *WatchPackRepository) Counts(ctx context.Context) (total int, active int, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM watch_packs`,
	).Scan(&total, &active)
	if err != nil {
		return 0, 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count watch packs", err)
	}
	return total, active, nil
}

// CountActiveSubscriptions counts the live subscription rows for a pack.
// Health checks compare this against the denormalized subscriber_count to
// detect drift.
func (r *WatchPackRepository) CountActiveSubscriptions(ctx context.Context, packID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM pack_subscriptions WHERE pack_id = $1 AND is_active`,
		packID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count pack subscriptions", err)
	}
	return count, nil
}

// DeleteStaleSubscriptions removes subscription rows pointing at inactive
// packs or flagged inactive themselves. Returns the count of deleted rows.
// Idempotent: a second immediate pass matches nothing.
func (r *WatchPackRepository) DeleteStaleSubscriptions(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM pack_subscriptions
		 WHERE NOT is_active
		    OR pack_id IN (SELECT id FROM watch_packs WHERE NOT is_active)`,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete stale subscriptions", err)
	}
	return tag.RowsAffected(), nil
}
