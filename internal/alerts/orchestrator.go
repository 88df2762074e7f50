package alerts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"stockwatch/internal/db"
	"stockwatch/internal/types"

	"github.com/google/uuid"
)

// Orchestrator runs the alert pipeline: validate, dedup, rate-limit, create,
// quiet-hours, deliver. It owns alert lifecycle state and is the only writer
// of watch delivery counters.
type Orchestrator struct {
	alerts   AlertStore
	watches  WatchStore
	users    UserStore
	products ProductStore

	dedup      *DedupGate
	limiter    *RateLimiter
	quiet      types.QuietHoursGate
	dispatcher types.Dispatcher
	metrics    Metrics

	maxRetries    int
	quietFallback time.Duration

	clock  types.Clock
	logger types.Logger
}

// OrchestratorConfig carries the orchestrator's collaborators and tuning.
type OrchestratorConfig struct {
	Alerts   AlertStore
	Watches  WatchStore
	Users    UserStore
	Products ProductStore

	Dedup      *DedupGate
	Limiter    *RateLimiter
	Quiet      types.QuietHoursGate
	Dispatcher types.Dispatcher
	Metrics    Metrics

	// MaxRetries bounds retry attempts per alert before it is permanently
	// failed. Defaults to 3.
	MaxRetries int
	// QuietFallback is the reschedule offset used when the quiet-hours gate
	// reports quiet without a next-active instant. Defaults to 1h.
	QuietFallback time.Duration

	Clock  types.Clock
	Logger types.Logger
}

// NewOrchestrator creates an alert orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.QuietFallback <= 0 {
		cfg.QuietFallback = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetrics{}
	}
	return &Orchestrator{
		alerts:        cfg.Alerts,
		watches:       cfg.Watches,
		users:         cfg.Users,
		products:      cfg.Products,
		dedup:         cfg.Dedup,
		limiter:       cfg.Limiter,
		quiet:         cfg.Quiet,
		dispatcher:    cfg.Dispatcher,
		metrics:       cfg.Metrics,
		maxRetries:    cfg.MaxRetries,
		quietFallback: cfg.QuietFallback,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
	}
}

// GenerateAlert turns one monitoring signal into at most one alert row.
//
// Validation and rate-limit failures are returned as typed errors with an
// OutcomeFailed result and leave no side effects. A duplicate inside the
// dedup window returns OutcomeDeduplicated with the original alert's ID and
// no error. Otherwise the alert is created pending and either deferred
// around quiet hours (OutcomeScheduled) or delivered inline.
func (o *Orchestrator) GenerateAlert(ctx context.Context, input GenerateAlertInput) (GenerateAlertResult, error) {
	if _, err := o.validate(ctx, input); err != nil {
		o.metrics.RecordGenerate(ctx, types.OutcomeFailed, input.Type)
		return GenerateAlertResult{Outcome: types.OutcomeFailed, Reason: "validation failed"}, err
	}

	dup, err := o.dedup.FindDuplicate(ctx, input.UserID, input.ProductID, input.RetailerID, input.Type)
	if err != nil {
		return GenerateAlertResult{Outcome: types.OutcomeFailed, Reason: "dedup lookup failed"},
			types.NewAppError(types.ErrCodeInternalDB, "deduplication lookup failed", err)
	}
	if dup != nil {
		o.logger.Info("alert deduplicated",
			"user_id", input.UserID,
			"product_id", input.ProductID,
			"retailer_id", input.RetailerID,
			"type", string(input.Type),
			"original_alert_id", dup.ID,
		)
		o.metrics.RecordGenerate(ctx, types.OutcomeDeduplicated, input.Type)
		return GenerateAlertResult{
			Outcome: types.OutcomeDeduplicated,
			AlertID: dup.ID,
			Reason:  "duplicate within dedup window",
		}, nil
	}

	if _, err := o.limiter.Check(ctx, input.UserID); err != nil {
		o.metrics.RecordGenerate(ctx, types.OutcomeFailed, input.Type)
		return GenerateAlertResult{Outcome: types.OutcomeFailed, Reason: "rate limit exceeded"}, err
	}

	priority := input.Priority
	if priority == "" {
		priority = strategyFor(input.Type).CalculatePriority(input.Data)
	}

	now := o.clock.Now()
	alert := &types.Alert{
		ID:         "alrt_" + uuid.NewString(),
		UserID:     input.UserID,
		ProductID:  input.ProductID,
		RetailerID: input.RetailerID,
		WatchID:    input.WatchID,
		Type:       input.Type,
		Priority:   priority,
		Status:     types.AlertStatusPending,
		Data:       input.Data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := o.alerts.Create(ctx, alert, o.dedup.Window()); err != nil {
		if errors.Is(err, db.ErrDuplicateAlert) {
			// A concurrent signal won the insert race. Fold into its row.
			since := now.Add(-o.dedup.Window())
			original, lookupErr := o.alerts.FindRecentDuplicate(ctx, input.UserID, input.ProductID, input.RetailerID, input.Type, since)
			if lookupErr != nil || original == nil {
				return GenerateAlertResult{Outcome: types.OutcomeFailed, Reason: "dedup lookup failed"},
					types.NewAppError(types.ErrCodeInternalDB, "duplicate alert lookup failed", lookupErr)
			}
			o.metrics.RecordGenerate(ctx, types.OutcomeDeduplicated, input.Type)
			return GenerateAlertResult{
				Outcome: types.OutcomeDeduplicated,
				AlertID: original.ID,
				Reason:  "duplicate within dedup window",
			}, nil
		}
		return GenerateAlertResult{Outcome: types.OutcomeFailed, Reason: "alert creation failed"},
			types.NewAppError(types.ErrCodeInternalDB, "failed to create alert", err)
	}

	quiet, err := o.quiet.IsQuietTime(ctx, input.UserID)
	if err != nil {
		// The row exists; leave it pending for the batch job rather than
		// failing the signal.
		o.logger.Warn("quiet hours check failed after alert creation",
			"error", err.Error(),
			"alert_id", alert.ID,
		)
		quiet = types.QuietTimeResult{IsQuietTime: false}
	}
	if quiet.IsQuietTime {
		deferUntil := now.Add(o.quietFallback)
		if quiet.NextActiveTime != nil {
			deferUntil = *quiet.NextActiveTime
		}
		if err := o.alerts.Reschedule(ctx, alert.ID, deferUntil); err != nil {
			return GenerateAlertResult{Outcome: types.OutcomeFailed, Reason: "reschedule failed"},
				types.NewAppError(types.ErrCodeInternalDB, "failed to schedule alert", err)
		}
		o.logger.Info("alert deferred for quiet hours",
			"alert_id", alert.ID,
			"user_id", input.UserID,
			"scheduled_for", deferUntil.Format(time.RFC3339),
		)
		o.metrics.RecordGenerate(ctx, types.OutcomeScheduled, input.Type)
		return GenerateAlertResult{
			Outcome:      types.OutcomeScheduled,
			AlertID:      alert.ID,
			ScheduledFor: &deferUntil,
			Reason:       quiet.Reason,
		}, nil
	}

	procResult := o.ProcessAlert(ctx, alert.ID)
	outcome := types.OutcomeProcessed
	if !procResult.Success() {
		outcome = types.OutcomeFailed
	}
	o.metrics.RecordGenerate(ctx, outcome, input.Type)
	return GenerateAlertResult{
		Outcome:      outcome,
		AlertID:      alert.ID,
		ScheduledFor: procResult.ScheduledFor,
		Channels:     procResult.Channels,
		Reason:       procResult.Reason,
	}, nil
}

// ListUserAlerts returns the user's alert history, newest first. The page
// size is clamped to [1, 200].
func (o *Orchestrator) ListUserAlerts(ctx context.Context, userID string, limit int) ([]*types.Alert, error) {
	if userID == "" {
		return nil, types.NewValidationError([]string{"user_id is required"})
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out, err := o.alerts.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alerts", err)
	}
	return out, nil
}

// validateLoads holds the concurrently fetched referents.
type validateLoads struct {
	user    *types.User
	product *types.Product
	watch   *types.Watch
}

// validate checks the signal's structure, then loads the referenced user,
// product, and optional watch concurrently and checks their state. All
// violations are aggregated into a single validation error.
func (o *Orchestrator) validate(ctx context.Context, input GenerateAlertInput) (validateLoads, error) {
	var violations []string
	if input.UserID == "" {
		violations = append(violations, "user_id is required")
	}
	if input.ProductID == "" {
		violations = append(violations, "product_id is required")
	}
	if input.RetailerID == "" {
		violations = append(violations, "retailer_id is required")
	}
	if !input.Type.Valid() {
		violations = append(violations, fmt.Sprintf("unknown alert type %q", input.Type))
	}
	if input.Priority != "" && !input.Priority.Valid() {
		violations = append(violations, fmt.Sprintf("unknown priority %q", input.Priority))
	}
	if input.Data.ProductName == "" {
		violations = append(violations, "data.product_name is required")
	}
	if input.Data.RetailerName == "" {
		violations = append(violations, "data.retailer_name is required")
	}
	if !validProductURL(input.Data.ProductURL) {
		violations = append(violations, "data.product_url must be a valid http(s) URL")
	}
	if len(violations) > 0 {
		// Referent lookups are pointless when the signal is malformed.
		return validateLoads{}, types.NewValidationError(violations)
	}

	var loaded validateLoads
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := o.users.GetByID(gctx, input.UserID)
		if err != nil && !types.IsNotFound(err) {
			return fmt.Errorf("load user: %w", err)
		}
		loaded.user = u
		return nil
	})
	g.Go(func() error {
		p, err := o.products.GetByID(gctx, input.ProductID)
		if err != nil && !types.IsNotFound(err) {
			return fmt.Errorf("load product: %w", err)
		}
		loaded.product = p
		return nil
	})
	if input.WatchID != "" {
		g.Go(func() error {
			w, err := o.watches.GetByID(gctx, input.WatchID)
			if err != nil && !types.IsNotFound(err) {
				return fmt.Errorf("load watch: %w", err)
			}
			loaded.watch = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return validateLoads{}, types.NewAppError(types.ErrCodeInternalDB, "validation lookups failed", err)
	}

	if loaded.user == nil {
		violations = append(violations, "user not found")
	} else if !loaded.user.EmailVerified {
		violations = append(violations, "user email is not verified")
	}
	if loaded.product == nil {
		violations = append(violations, "product not found")
	} else if !loaded.product.IsActive {
		violations = append(violations, "product is inactive")
	}
	if input.WatchID != "" {
		switch {
		case loaded.watch == nil:
			violations = append(violations, "watch not found")
		case loaded.watch.UserID != input.UserID:
			violations = append(violations, "watch belongs to a different user")
		case !loaded.watch.IsActive:
			violations = append(violations, "watch is inactive")
		case !loaded.watch.WantsType(input.Type):
			violations = append(violations, fmt.Sprintf("watch has %s alerts disabled", input.Type))
		}
	}
	if len(violations) > 0 {
		return validateLoads{}, types.NewValidationError(violations)
	}
	return loaded, nil
}

func validProductURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
