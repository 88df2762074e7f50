package alerts

import (
	"context"
	"time"

	"stockwatch/internal/types"
)

// mockClock implements types.Clock for deterministic testing.
type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

// mockLogger implements types.Logger as a no-op for tests.
type mockLogger struct{}

func (l *mockLogger) Info(msg string, args ...any)  {}
func (l *mockLogger) Error(msg string, args ...any) {}
func (l *mockLogger) Warn(msg string, args ...any)  {}
func (l *mockLogger) With(args ...any) types.Logger { return l }

// mockAlertStore is an in-memory AlertStore with call tracking.
type mockAlertStore struct {
	byID map[string]*types.Alert

	recentDup  *types.Alert
	countSince int
	createErr  error

	createCalls  int
	sent         map[string][]types.ChannelType
	failed       map[string]string
	rescheduled  map[string]time.Time
	retried      []string
	duePending   []*types.Alert
	retryable    []*types.Alert
}

func newMockAlertStore() *mockAlertStore {
	return &mockAlertStore{
		byID:        make(map[string]*types.Alert),
		sent:        make(map[string][]types.ChannelType),
		failed:      make(map[string]string),
		rescheduled: make(map[string]time.Time),
	}
}

func (s *mockAlertStore) Create(ctx context.Context, a *types.Alert, dedupWindow time.Duration) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	copied := *a
	s.byID[a.ID] = &copied
	return nil
}

func (s *mockAlertStore) GetByID(ctx context.Context, id string) (*types.Alert, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
	}
	copied := *a
	return &copied, nil
}

func (s *mockAlertStore) FindRecentDuplicate(ctx context.Context, userID, productID, retailerID string, alertType types.AlertType, since time.Time) (*types.Alert, error) {
	return s.recentDup, nil
}

func (s *mockAlertStore) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return s.countSince, nil
}

func (s *mockAlertStore) MarkSent(ctx context.Context, id string, channels []types.ChannelType) error {
	s.sent[id] = channels
	if a, ok := s.byID[id]; ok {
		a.Status = types.AlertStatusSent
		a.DeliveryChannels = channels
	}
	return nil
}

func (s *mockAlertStore) MarkFailed(ctx context.Context, id string, reason string) error {
	s.failed[id] = reason
	if a, ok := s.byID[id]; ok {
		a.Status = types.AlertStatusFailed
		a.FailureReason = reason
	}
	return nil
}

func (s *mockAlertStore) Reschedule(ctx context.Context, id string, at time.Time) error {
	s.rescheduled[id] = at
	if a, ok := s.byID[id]; ok {
		t := at
		a.ScheduledFor = &t
	}
	return nil
}

func (s *mockAlertStore) IncrementRetry(ctx context.Context, id string) error {
	s.retried = append(s.retried, id)
	if a, ok := s.byID[id]; ok {
		a.RetryCount++
	}
	return nil
}

func (s *mockAlertStore) ListDuePending(ctx context.Context, now time.Time, limit int) ([]*types.Alert, error) {
	return s.duePending, nil
}

func (s *mockAlertStore) ListRetryableFailed(ctx context.Context, maxAttempts, limit int) ([]*types.Alert, error) {
	return s.retryable, nil
}

func (s *mockAlertStore) ListByUser(ctx context.Context, userID string, limit int) ([]*types.Alert, error) {
	var out []*types.Alert
	for _, a := range s.byID {
		if a.UserID == userID && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

// mockWatchStore implements WatchStore with delivery tracking.
type mockWatchStore struct {
	byID       map[string]*types.Watch
	deliveries map[string]int
}

func newMockWatchStore(watches ...*types.Watch) *mockWatchStore {
	s := &mockWatchStore{
		byID:       make(map[string]*types.Watch),
		deliveries: make(map[string]int),
	}
	for _, w := range watches {
		s.byID[w.ID] = w
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

func (s *mockWatchStore) RecordDelivery(ctx context.Context, id string, at time.Time) error {
	s.deliveries[id]++
	if w, ok := s.byID[id]; ok {
		w.AlertCount++
		t := at
		w.LastAlerted = &t
	}
	return nil
}

// mockUserStore implements UserStore.
type mockUserStore struct {
	byID map[string]*types.User
}

func newMockUserStore(users ...*types.User) *mockUserStore {
	s := &mockUserStore{byID: make(map[string]*types.User)}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *mockUserStore) GetByID(ctx context.Context, id string) (*types.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return u, nil
}

// mockProductStore implements ProductStore.
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

// mockDispatcher implements types.Dispatcher with a scripted result.
type mockDispatcher struct {
	result types.DeliveryResult
	err    error

	calls        int
	lastChannels []types.ChannelType
}

func (d *mockDispatcher) DeliverAlert(ctx context.Context, alert *types.Alert, user *types.User, channels []types.ChannelType) (types.DeliveryResult, error) {
	d.calls++
	d.lastChannels = channels
	if d.err != nil {
		return types.DeliveryResult{}, d.err
	}
	if d.result.Success && len(d.result.SuccessfulChannels) == 0 {
		// Default scripted success: everything requested succeeds.
		return types.DeliveryResult{Success: true, SuccessfulChannels: channels}, nil
	}
	return d.result, nil
}

// mockQuietGate implements types.QuietHoursGate with a scripted verdict.
type mockQuietGate struct {
	result types.QuietTimeResult
	err    error
}

func (g *mockQuietGate) IsQuietTime(ctx context.Context, userID string) (types.QuietTimeResult, error) {
	if g.err != nil {
		return types.QuietTimeResult{}, g.err
	}
	return g.result, nil
}

// Shared fixtures.

func testUser() *types.User {
	return &types.User{
		ID:            "user_1",
		Email:         "collector@example.com",
		EmailVerified: true,
		Preferences: types.NotificationPreferences{
			WebPushEnabled: true,
			EmailEnabled:   true,
		},
	}
}

func testProduct() *types.Product {
	return &types.Product{ID: "prod_1", Name: "GPU X", IsActive: true, Popularity: 90}
}

func testWatch() *types.Watch {
	return &types.Watch{
		ID:          "watch_1",
		UserID:      "user_1",
		ProductID:   "prod_1",
		RetailerIDs: []string{"ret_1"},
		IsActive:    true,
	}
}

func testInput() GenerateAlertInput {
	return GenerateAlertInput{
		UserID:     "user_1",
		ProductID:  "prod_1",
		RetailerID: "ret_1",
		WatchID:    "watch_1",
		Type:       types.AlertRestock,
		Data: types.AlertData{
			ProductName:  "GPU X",
			RetailerName: "MegaMart",
			ProductURL:   "https://megamart.example.com/gpu-x",
			Popularity:   90,
		},
	}
}

type orchestratorFixture struct {
	alerts     *mockAlertStore
	watches    *mockWatchStore
	users      *mockUserStore
	products   *mockProductStore
	dispatcher *mockDispatcher
	quiet      *mockQuietGate
	clock      *mockClock
	orch       *Orchestrator
}

func newOrchestratorFixture(now time.Time) *orchestratorFixture {
	f := &orchestratorFixture{
		alerts:     newMockAlertStore(),
		watches:    newMockWatchStore(testWatch()),
		users:      newMockUserStore(testUser()),
		products:   newMockProductStore(testProduct()),
		dispatcher: &mockDispatcher{result: types.DeliveryResult{Success: true}},
		quiet:      &mockQuietGate{},
		clock:      &mockClock{now: now},
	}
	f.orch = NewOrchestrator(OrchestratorConfig{
		Alerts:     f.alerts,
		Watches:    f.watches,
		Users:      f.users,
		Products:   f.products,
		Dedup:      NewDedupGate(f.alerts, 15*time.Minute, f.clock),
		Limiter:    NewRateLimiter(f.alerts, time.Hour, 50, f.clock),
		Quiet:      f.quiet,
		Dispatcher: f.dispatcher,
		MaxRetries: 3,
		Clock:      f.clock,
		Logger:     &mockLogger{},
	})
	return f
}
