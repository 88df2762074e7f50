package alerts

import (
	"context"
	"time"

	"stockwatch/internal/types"
)

// DedupStore is the single query the dedup gate needs.
type DedupStore interface {
	FindRecentDuplicate(ctx context.Context, userID, productID, retailerID string, alertType types.AlertType, since time.Time) (*types.Alert, error)
}

// DedupGate decides whether an equivalent live alert already exists inside
// the deduplication window. Equivalence is the full (user, product, retailer,
// type) key; only 'pending' and 'sent' alerts suppress a new signal.
//
// The gate is read-only: folding a duplicate into the original is the
// orchestrator's call. Two concurrent generate calls can both pass this check
// before either commits; the conditional insert in AlertStore.Create closes
// that race at the storage layer.
type DedupGate struct {
	store  DedupStore
	window time.Duration
	clock  types.Clock
}

// NewDedupGate creates a DedupGate with the given window. A zero or negative
// window disables deduplication entirely, which is only sensible in tests.
func NewDedupGate(store DedupStore, window time.Duration, clock types.Clock) *DedupGate {
	return &DedupGate{
		store:  store,
		window: window,
		clock:  clock,
	}
}

// FindDuplicate returns the original alert this signal duplicates, or nil
// when the signal is fresh.
func (g *DedupGate) FindDuplicate(ctx context.Context, userID, productID, retailerID string, alertType types.AlertType) (*types.Alert, error) {
	if g.window <= 0 {
		return nil, nil
	}
	since := g.clock.Now().Add(-g.window)
	return g.store.FindRecentDuplicate(ctx, userID, productID, retailerID, alertType, since)
}

// Window exposes the configured deduplication window for the conditional
// insert and for status reporting.
func (g *DedupGate) Window() time.Duration { return g.window }
