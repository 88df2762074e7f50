package alerts

import (
	"context"
	"time"

	"stockwatch/internal/types"
)

// RateLimitStore is the single query the rate limiter needs.
type RateLimitStore interface {
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// RateLimiter enforces the per-user alert quota over a trailing window.
// The count is taken at creation time; deduplicated signals never created a
// row and so never consume quota.
type RateLimiter struct {
	store  RateLimitStore
	window time.Duration
	max    int
	clock  types.Clock
}

// NewRateLimiter creates a RateLimiter with the given trailing window and cap.
func NewRateLimiter(store RateLimitStore, window time.Duration, max int, clock types.Clock) *RateLimiter {
	return &RateLimiter{
		store:  store,
		window: window,
		max:    max,
		clock:  clock,
	}
}

// Check returns a RateLimitError when the user is at or above the cap for the
// trailing window. On success it returns the observed count for logging.
func (l *RateLimiter) Check(ctx context.Context, userID string) (int, error) {
	since := l.clock.Now().Add(-l.window)
	count, err := l.store.CountCreatedSince(ctx, userID, since)
	if err != nil {
		return 0, err
	}
	if count >= l.max {
		return count, types.NewRateLimitError(userID, count, l.max)
	}
	return count, nil
}
