package scheduler

import (
	"context"
	"fmt"

	"stockwatch/internal/alerts"
	"stockwatch/internal/config"
	"stockwatch/internal/external"
	"stockwatch/internal/health"
	"stockwatch/internal/types"
)

// Job names, also the keys of the status endpoint.
const (
	JobAvailabilityScan   = "availability-scan"
	JobHotWindowCheck     = "hot-window-check"
	JobPredictionsRefresh = "predictions-refresh"
	JobProcessPending     = "process-pending"
	JobRetryFailed        = "retry-failed"
	JobCleanup            = "cleanup"
	JobCatalogIngest      = "catalog-ingest"
)

// SignalFeed is the upstream collaborator surface the jobs need. Satisfied
// by *external.FeedClient.
type SignalFeed interface {
	FetchAvailabilitySignals(ctx context.Context) ([]external.AvailabilitySignal, error)
	FetchHotWindowForecast(ctx context.Context) (external.HotWindowForecast, error)
	TriggerCatalogSync(ctx context.Context) (int, error)
}

// JobDeps carries the collaborators the platform jobs call into. The job
// bodies hold no business logic of their own.
type JobDeps struct {
	Orchestrator *alerts.Orchestrator
	Monitor      *health.Monitor
	Feed         SignalFeed
	HotWindow    types.HotWindowFlag

	// PendingBatch bounds one processing pass.
	PendingBatch int

	Logger types.Logger
}

// RegisterPlatformJobs registers the full recurring job set against the
// scheduler. Missing optional collaborators (a nil Feed when no upstream is
// configured) skip their jobs rather than registering a failing body.
func RegisterPlatformJobs(s *Scheduler, cfg config.JobsConfig, deps JobDeps) error {
	type job struct {
		name     string
		schedule string
		fn       JobFunc
	}

	jobs := []job{
		{JobProcessPending, cfg.ProcessPending, deps.processPending},
		{JobRetryFailed, cfg.RetryFailed, deps.retryFailed},
		{JobCleanup, cfg.Cleanup, deps.cleanup},
	}
	if deps.Feed != nil {
		jobs = append(jobs,
			job{JobAvailabilityScan, cfg.AvailabilityScan, deps.availabilityScan},
			job{JobHotWindowCheck, cfg.HotWindowCheck, deps.hotWindowCheck},
			job{JobPredictionsRefresh, cfg.PredictionsRefresh, deps.predictionsRefresh},
			job{JobCatalogIngest, cfg.CatalogIngest, deps.catalogIngest},
		)
	} else {
		deps.Logger.Warn("signal feed not configured, feed-driven jobs disabled")
	}

	for _, j := range jobs {
		if err := s.Register(j.name, j.schedule, j.fn); err != nil {
			return fmt.Errorf("register job %s: %w", j.name, err)
		}
	}
	return nil
}

// RunJob executes one named job body immediately, outside the scheduler.
// Used by the job-runner CLI for ad-hoc and backfill runs.
func (d JobDeps) RunJob(ctx context.Context, name string) error {
	feedJobs := map[string]JobFunc{
		JobAvailabilityScan:   d.availabilityScan,
		JobHotWindowCheck:     d.hotWindowCheck,
		JobPredictionsRefresh: d.predictionsRefresh,
		JobCatalogIngest:      d.catalogIngest,
	}
	if fn, ok := feedJobs[name]; ok {
		if d.Feed == nil {
			return types.NewAppError(types.ErrCodeSchedulerJob,
				fmt.Sprintf("job %s requires a configured signal feed", name), nil)
		}
		return fn(ctx)
	}

	switch name {
	case JobProcessPending:
		return d.processPending(ctx)
	case JobRetryFailed:
		return d.retryFailed(ctx)
	case JobCleanup:
		return d.cleanup(ctx)
	}
	return types.NewAppError(types.ErrCodeNotFoundJob,
		fmt.Sprintf("unknown job %s", name), nil)
}

// availabilityScan drains the feed's pending signals and routes each through
// the orchestrator. Per-signal failures are logged and skipped; only a feed
// fetch failure fails the job.
func (d JobDeps) availabilityScan(ctx context.Context) error {
	signals, err := d.Feed.FetchAvailabilitySignals(ctx)
	if err != nil {
		return fmt.Errorf("fetch availability signals: %w", err)
	}

	for _, sig := range signals {
		result, err := d.Orchestrator.GenerateAlert(ctx, alerts.GenerateAlertInput{
			UserID:     sig.UserID,
			ProductID:  sig.ProductID,
			RetailerID: sig.RetailerID,
			WatchID:    sig.WatchID,
			Type:       sig.Type,
			Priority:   sig.Priority,
			Data:       sig.Data,
		})
		if err != nil {
			// Validation and rate-limit rejections are per-signal verdicts,
			// not job failures.
			d.Logger.Warn("signal rejected",
				"error", err.Error(),
				"user_id", sig.UserID,
				"product_id", sig.ProductID,
				"type", string(sig.Type),
			)
			continue
		}
		d.Logger.Info("signal handled",
			"outcome", string(result.Outcome),
			"alert_id", result.AlertID,
		)
	}
	return nil
}

// hotWindowCheck only does work while a hot window is open: it runs an extra
// pending pass so deferred and freshly created alerts go out with minimal
// lag during the predicted restock window.
func (d JobDeps) hotWindowCheck(ctx context.Context) error {
	if !d.HotWindow.Active() {
		return nil
	}
	_, err := d.Orchestrator.ProcessPendingAlerts(ctx, d.PendingBatch)
	return err
}

// predictionsRefresh pulls the latest forecast and updates the flag.
func (d JobDeps) predictionsRefresh(ctx context.Context) error {
	forecast, err := d.Feed.FetchHotWindowForecast(ctx)
	if err != nil {
		return fmt.Errorf("fetch hot-window forecast: %w", err)
	}
	d.HotWindow.Set(forecast.Active, forecast.Until)
	if forecast.Active {
		d.Logger.Info("hot window open", "until", forecast.Until)
	}
	return nil
}

func (d JobDeps) processPending(ctx context.Context) error {
	_, err := d.Orchestrator.ProcessPendingAlerts(ctx, d.PendingBatch)
	return err
}

func (d JobDeps) retryFailed(ctx context.Context) error {
	_, err := d.Orchestrator.RetryFailedAlerts(ctx, d.PendingBatch)
	return err
}

func (d JobDeps) cleanup(ctx context.Context) error {
	_, err := d.Monitor.CleanupWatches(ctx)
	return err
}

func (d JobDeps) catalogIngest(ctx context.Context) error {
	updated, err := d.Feed.TriggerCatalogSync(ctx)
	if err != nil {
		return fmt.Errorf("trigger catalog sync: %w", err)
	}
	d.Logger.Info("catalog sync complete", "products_updated", updated)
	return nil
}
