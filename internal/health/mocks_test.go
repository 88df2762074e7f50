package health

import (
	"context"
	"time"

	"stockwatch/internal/types"
)

type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

type mockLogger struct{}

func (l *mockLogger) Info(msg string, args ...any)  {}
func (l *mockLogger) Error(msg string, args ...any) {}
func (l *mockLogger) Warn(msg string, args ...any)  {}
func (l *mockLogger) With(args ...any) types.Logger { return l }

// mockWatchStore is an in-memory WatchStore; cleanup counters are consumed on
// first call so a second pass observes zeros.
type mockWatchStore struct {
	byID   map[string]*types.Watch
	byUser map[string][]*types.Watch

	total  int
	active int

	sampleIDs []string

	orphaned int64
}

func newMockWatchStore(watches ...*types.Watch) *mockWatchStore {
	s := &mockWatchStore{
		byID:   make(map[string]*types.Watch),
		byUser: make(map[string][]*types.Watch),
	}
	for _, w := range watches {
		s.byID[w.ID] = w
		s.byUser[w.UserID] = append(s.byUser[w.UserID], w)
	}
	return s
}

func (s *mockWatchStore) GetByID(ctx context.Context, id string) (*types.Watch, error) {
	w, ok := s.byID[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundWatch, "watch not found", nil)
	}
	return w, nil
}

func (s *mockWatchStore) ListByUser(ctx context.Context, userID string, limit int) ([]*types.Watch, error) {
	return s.byUser[userID], nil
}

func (s *mockWatchStore) Counts(ctx context.Context) (int, int, error) {
	return s.total, s.active, nil
}

func (s *mockWatchStore) SampleActiveIDs(ctx context.Context, n int) ([]string, error) {
	if len(s.sampleIDs) > n {
		return s.sampleIDs[:n], nil
	}
	return s.sampleIDs, nil
}

func (s *mockWatchStore) DeactivateOrphaned(ctx context.Context) (int64, error) {
	n := s.orphaned
	s.orphaned = 0
	return n, nil
}

// mockPackStore is an in-memory PackStore.
type mockPackStore struct {
	byID        map[string]*types.WatchPack
	subscribers map[string]int

	total  int
	active int

	stale int64
}

func newMockPackStore(packs ...*types.WatchPack) *mockPackStore {
	s := &mockPackStore{
		byID:        make(map[string]*types.WatchPack),
		subscribers: make(map[string]int),
	}
	for _, p := range packs {
		s.byID[p.ID] = p
	}
	return s
}

func (s *mockPackStore) GetByID(ctx context.Context, id string) (*types.WatchPack, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundPack, "watch pack not found", nil)
	}
	return p, nil
}

func (s *mockPackStore) Counts(ctx context.Context) (int, int, error) {
	return s.total, s.active, nil
}

func (s *mockPackStore) CountActiveSubscriptions(ctx context.Context, packID string) (int, error) {
	return s.subscribers[packID], nil
}

func (s *mockPackStore) DeleteStaleSubscriptions(ctx context.Context) (int64, error) {
	n := s.stale
	s.stale = 0
	return n, nil
}

// mockProductStore is an in-memory ProductStore.
type mockProductStore struct {
	byID map[string]*types.Product
}

func newMockProductStore(products ...*types.Product) *mockProductStore {
	s := &mockProductStore{byID: make(map[string]*types.Product)}
	for _, p := range products {
		s.byID[p.ID] = p
	}
	return s
}

func (s *mockProductStore) GetByID(ctx context.Context, id string) (*types.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundProduct, "product not found", nil)
	}
	return p, nil
}

func (s *mockProductStore) ActiveFlags(ctx context.Context, ids []string) (map[string]bool, error) {
	flags := make(map[string]bool, len(ids))
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			flags[id] = p.IsActive
		}
	}
	return flags, nil
}

var healthTestNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func healthyWatch() *types.Watch {
	alerted := healthTestNow.Add(-24 * time.Hour)
	return &types.Watch{
		ID:          "watch_1",
		UserID:      "user_1",
		ProductID:   "prod_1",
		RetailerIDs: []string{"ret_1"},
		IsActive:    true,
		AlertCount:  4,
		LastAlerted: &alerted,
	}
}

func activeProduct() *types.Product {
	return &types.Product{ID: "prod_1", Name: "GPU X", IsActive: true}
}

type monitorFixture struct {
	watches  *mockWatchStore
	packs    *mockPackStore
	products *mockProductStore
	clock    *mockClock
	monitor  *Monitor
}

func newMonitorFixture() *monitorFixture {
	f := &monitorFixture{
		watches:  newMockWatchStore(healthyWatch()),
		packs:    newMockPackStore(),
		products: newMockProductStore(activeProduct()),
		clock:    &mockClock{now: healthTestNow},
	}
	f.monitor = NewMonitor(MonitorConfig{
		Watches:  f.watches,
		Packs:    f.packs,
		Products: f.products,
		Clock:    f.clock,
		Logger:   &mockLogger{},
	})
	return f
}
