// Package health provides read-only and light-write diagnostics over watches
// and watch packs: per-watch and per-pack checks served on demand by the API,
// a sampled system-wide estimate, and the periodic cleanup pass.
package health

import (
	"context"
	"fmt"
	"time"

	"stockwatch/internal/types"
)

// WatchStore is the watch persistence surface the monitor needs.
type WatchStore interface {
	GetByID(ctx context.Context, id string) (*types.Watch, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*types.Watch, error)
	Counts(ctx context.Context) (total int, active int, err error)
	SampleActiveIDs(ctx context.Context, n int) ([]string, error)
	DeactivateOrphaned(ctx context.Context) (int64, error)
}

// PackStore is the watch-pack persistence surface the monitor needs.
type PackStore interface {
	GetByID(ctx context.Context, id string) (*types.WatchPack, error)
	Counts(ctx context.Context) (total int, active int, err error)
	CountActiveSubscriptions(ctx context.Context, packID string) (int, error)
	DeleteStaleSubscriptions(ctx context.Context) (int64, error)
}

// ProductStore is the catalog read surface the monitor needs.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*types.Product, error)
	ActiveFlags(ctx context.Context, ids []string) (map[string]bool, error)
}

// staleAlertWindow is how long a previously-alerting watch may stay silent
// before the silence is surfaced as an informational issue.
const staleAlertWindow = 30 * 24 * time.Hour

// Monitor runs watch and pack health diagnostics.
type Monitor struct {
	watches  WatchStore
	packs    PackStore
	products ProductStore
	archiver *Archiver

	sampleSize   int
	userPageSize int

	clock  types.Clock
	logger types.Logger
}

// MonitorConfig carries the monitor's collaborators and tuning.
type MonitorConfig struct {
	Watches  WatchStore
	Packs    PackStore
	Products ProductStore
	// Archiver handles alert retention during cleanup; nil disables archival.
	Archiver *Archiver

	// SampleSize bounds the per-call cost of the system estimate. Defaults
	// to 100.
	SampleSize int
	// UserPageSize bounds CheckUserWatchesHealth. Defaults to 200.
	UserPageSize int

	Clock  types.Clock
	Logger types.Logger
}

// NewMonitor creates a health monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 100
	}
	if cfg.UserPageSize <= 0 {
		cfg.UserPageSize = 200
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	return &Monitor{
		watches:      cfg.Watches,
		packs:        cfg.Packs,
		products:     cfg.Products,
		archiver:     cfg.Archiver,
		sampleSize:   cfg.SampleSize,
		userPageSize: cfg.UserPageSize,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
	}
}

// CheckWatchHealth diagnoses one watch. It returns (nil, nil) when the watch
// does not exist; misconfiguration shows up as issue strings, with purely
// informational issues not flipping the healthy flag.
func (m *Monitor) CheckWatchHealth(ctx context.Context, watchID string) (*types.WatchHealth, error) {
	watch, err := m.watches.GetByID(ctx, watchID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	health := &types.WatchHealth{
		WatchID:     watch.ID,
		UserID:      watch.UserID,
		ProductID:   watch.ProductID,
		IsHealthy:   true,
		AlertCount:  watch.AlertCount,
		LastAlerted: watch.LastAlerted,
	}

	product, err := m.products.GetByID(ctx, watch.ProductID)
	switch {
	case err != nil && types.IsNotFound(err):
		health.IsHealthy = false
		health.Issues = append(health.Issues, "product no longer exists")
	case err != nil:
		return nil, fmt.Errorf("load product for watch %s: %w", watchID, err)
	case !product.IsActive:
		health.IsHealthy = false
		health.Issues = append(health.Issues, "product is inactive")
	}

	if len(watch.RetailerIDs) == 0 {
		health.IsHealthy = false
		health.Issues = append(health.Issues, "no retailers configured")
	}
	if (watch.AvailabilityType == types.AvailabilityInStore || watch.AvailabilityType == types.AvailabilityBoth) && watch.ZipCode == "" {
		health.IsHealthy = false
		health.Issues = append(health.Issues, "in-store monitoring requires a zip code")
	}
	if watch.ZipCode != "" && watch.RadiusMiles == nil {
		// Warning only: delivery still works with the default radius.
		health.Issues = append(health.Issues, "zip code set without a radius")
	}
	if watch.LastAlerted != nil && m.clock.Now().Sub(*watch.LastAlerted) > staleAlertWindow {
		// Informational: a quiet month often just means a quiet product.
		health.Issues = append(health.Issues, "no alerts in over 30 days")
	}

	return health, nil
}

// CheckUserWatchesHealth diagnoses every watch a user owns, up to the
// configured page size. A single watch's check failure is logged and
// skipped, never propagated.
func (m *Monitor) CheckUserWatchesHealth(ctx context.Context, userID string) ([]*types.WatchHealth, error) {
	watches, err := m.watches.ListByUser(ctx, userID, m.userPageSize)
	if err != nil {
		return nil, fmt.Errorf("list watches for user %s: %w", userID, err)
	}

	results := make([]*types.WatchHealth, 0, len(watches))
	for _, w := range watches {
		health, err := m.CheckWatchHealth(ctx, w.ID)
		if err != nil {
			m.logger.Warn("watch health check skipped",
				"error", err.Error(),
				"watch_id", w.ID,
				"user_id", userID,
			)
			continue
		}
		if health != nil {
			results = append(results, health)
		}
	}
	return results, nil
}

// CheckWatchPackHealth diagnoses one pack: product membership, the active
// ratio, and subscriber-count drift. Drift is reported, never auto-corrected.
func (m *Monitor) CheckWatchPackHealth(ctx context.Context, packID string) (*types.PackHealth, error) {
	pack, err := m.packs.GetByID(ctx, packID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	health := &types.PackHealth{
		PackID:          pack.ID,
		IsHealthy:       true,
		ProductCount:    len(pack.ProductIDs),
		SubscriberCount: pack.SubscriberCount,
	}

	if len(pack.ProductIDs) == 0 {
		health.IsHealthy = false
		health.Issues = append(health.Issues, "pack has no products")
	} else {
		flags, err := m.products.ActiveFlags(ctx, pack.ProductIDs)
		if err != nil {
			return nil, fmt.Errorf("load product flags for pack %s: %w", packID, err)
		}
		for _, id := range pack.ProductIDs {
			if flags[id] {
				health.ActiveProductCount++
			}
		}
		if health.ActiveProductCount*2 < health.ProductCount {
			health.IsHealthy = false
			health.Issues = append(health.Issues, "fewer than half of pack products are active")
		}
	}

	actual, err := m.packs.CountActiveSubscriptions(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions for pack %s: %w", packID, err)
	}
	health.ActualSubscribers = actual
	if actual != pack.SubscriberCount {
		// Informational until the reconciliation job corrects it.
		health.Issues = append(health.Issues,
			fmt.Sprintf("subscriber count drift: stored %d, actual %d", pack.SubscriberCount, actual))
	}

	return health, nil
}

// SystemWatchHealth reports platform-wide aggregates plus a sampled healthy
// estimate. Checking every active watch is too costly at fleet size, so a
// random sample of the configured size is checked and the ratio extrapolated.
// HealthyEstimate is explicitly an estimate, not an exact count.
func (m *Monitor) SystemWatchHealth(ctx context.Context) (*types.SystemHealth, error) {
	totalWatches, activeWatches, err := m.watches.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count watches: %w", err)
	}
	totalPacks, activePacks, err := m.packs.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count packs: %w", err)
	}

	health := &types.SystemHealth{
		TotalWatches:  totalWatches,
		ActiveWatches: activeWatches,
		TotalPacks:    totalPacks,
		ActivePacks:   activePacks,
	}
	if activeWatches == 0 {
		return health, nil
	}

	sampleIDs, err := m.watches.SampleActiveIDs(ctx, m.sampleSize)
	if err != nil {
		return nil, fmt.Errorf("sample active watches: %w", err)
	}
	for _, id := range sampleIDs {
		wh, err := m.CheckWatchHealth(ctx, id)
		if err != nil {
			m.logger.Warn("sampled watch check skipped",
				"error", err.Error(),
				"watch_id", id,
			)
			continue
		}
		if wh == nil {
			continue
		}
		health.SampleSize++
		if wh.IsHealthy {
			health.SampledHealthy++
		}
	}
	if health.SampleSize > 0 {
		health.HealthyRatio = float64(health.SampledHealthy) / float64(health.SampleSize)
		health.HealthyEstimate = int(health.HealthyRatio * float64(activeWatches))
	}

	return health, nil
}

// CleanupWatches runs one maintenance pass: deactivates watches whose product
// went inactive, removes stale pack subscriptions, and archives then deletes
// alerts past retention. Every step is idempotent; a second immediate pass
// reports all zeros.
func (m *Monitor) CleanupWatches(ctx context.Context) (*types.CleanupReport, error) {
	report := &types.CleanupReport{}

	deactivated, err := m.watches.DeactivateOrphaned(ctx)
	if err != nil {
		return nil, fmt.Errorf("deactivate orphaned watches: %w", err)
	}
	report.WatchesDeactivated = int(deactivated)

	removed, err := m.packs.DeleteStaleSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("remove stale subscriptions: %w", err)
	}
	report.SubscriptionsRemoved = int(removed)

	if m.archiver != nil {
		archived, deleted, err := m.archiver.ArchiveExpired(ctx)
		if err != nil {
			return nil, fmt.Errorf("archive expired alerts: %w", err)
		}
		report.AlertsArchived = archived
		report.AlertsDeleted = deleted
	}

	if report.WatchesDeactivated > 0 || report.SubscriptionsRemoved > 0 || report.AlertsDeleted > 0 {
		m.logger.Info("cleanup pass complete",
			"watches_deactivated", report.WatchesDeactivated,
			"subscriptions_removed", report.SubscriptionsRemoved,
			"alerts_archived", report.AlertsArchived,
			"alerts_deleted", report.AlertsDeleted,
		)
	}
	return report, nil
}
