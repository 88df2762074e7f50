// Package main is the job-runner CLI: it executes one named recurring job
// immediately and exits. Used for ad-hoc runs, backfills, and verifying job
// wiring without waiting on the scheduler.
//
// Usage:
//
//	job-runner -job cleanup
//	job-runner -job process-pending -timeout 10m
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"stockwatch/internal/alerts"
	"stockwatch/internal/config"
	"stockwatch/internal/core"
	"stockwatch/internal/db"
	"stockwatch/internal/dispatch"
	"stockwatch/internal/external"
	"stockwatch/internal/health"
	"stockwatch/internal/scheduler"
	"stockwatch/internal/types"
)

func main() {
	jobName := flag.String("job", "", "name of the job to run (e.g. cleanup, process-pending, retry-failed)")
	timeout := flag.Duration("timeout", 15*time.Minute, "maximum run time")
	flag.Parse()

	if *jobName == "" {
		fmt.Fprintln(os.Stderr, "usage: job-runner -job <name> [-timeout 15m]")
		os.Exit(2)
	}

	if err := run(*jobName, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "job %s failed: %v\n", *jobName, err)
		os.Exit(1)
	}
}

func run(jobName string, timeout time.Duration) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := core.NewSlogLogger(cfg.LogLevel, cfg.Service+"-job-runner")
	typedLogger := core.AdaptLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	clock := types.RealClock{}
	alertRepo := db.NewAlertRepository(pool)
	watchRepo := db.NewWatchRepository(pool)
	userRepo := db.NewUserRepository(pool)
	productRepo := db.NewProductRepository(pool)
	packRepo := db.NewWatchPackRepository(pool)

	// Ad-hoc runs deliver through the webhook relay only; queue-backed
	// channels need the AWS environment the API process carries.
	httpClient := &http.Client{Timeout: cfg.Dispatch.Timeout}
	relayBase := external.NewBaseClient(httpClient, "partner-webhook", external.DefaultRetryPolicy(), cfg.Dispatch.UserAgent)
	relay := external.NewWebhookClient(relayBase, cfg.Dispatch.PartnerWebhookURL)
	dispatcher := dispatch.NewDispatcher(typedLogger, dispatch.NewWebhookChannel(relay, clock))

	orchestrator := alerts.NewOrchestrator(alerts.OrchestratorConfig{
		Alerts:        alertRepo,
		Watches:       watchRepo,
		Users:         userRepo,
		Products:      productRepo,
		Dedup:         alerts.NewDedupGate(alertRepo, cfg.Alerting.DedupWindow, clock),
		Limiter:       alerts.NewRateLimiter(alertRepo, cfg.Alerting.RateLimitWindow, cfg.Alerting.RateLimitMax, clock),
		Quiet:         alerts.NewPrefsQuietHoursGate(userRepo, clock, typedLogger),
		Dispatcher:    dispatcher,
		Metrics:       alerts.NoopMetrics{},
		MaxRetries:    cfg.Alerting.MaxRetryAttempts,
		QuietFallback: cfg.Alerting.QuietHoursFallback,
		Clock:         clock,
		Logger:        typedLogger,
	})

	monitor := health.NewMonitor(health.MonitorConfig{
		Watches:      watchRepo,
		Packs:        packRepo,
		Products:     productRepo,
		Archiver:     health.NewArchiver(alertRepo, cfg.Health.ArchiveDir, cfg.Health.AlertRetention, 500, clock, typedLogger),
		SampleSize:   cfg.Health.SampleSize,
		UserPageSize: cfg.Health.UserPageSize,
		Clock:        clock,
		Logger:       typedLogger,
	})

	var feed scheduler.SignalFeed
	if cfg.Feed.BaseURL != "" {
		feedHTTP := &http.Client{Timeout: cfg.Feed.Timeout}
		feedBase := external.NewBaseClient(feedHTTP, "signal-feed", external.DefaultRetryPolicy(), cfg.Dispatch.UserAgent)
		feed = external.NewFeedClient(feedBase, cfg.Feed.BaseURL)
	}

	deps := scheduler.JobDeps{
		Orchestrator: orchestrator,
		Monitor:      monitor,
		Feed:         feed,
		HotWindow:    scheduler.NewHotWindow(clock),
		PendingBatch: cfg.Alerting.PendingBatchSize,
		Logger:       typedLogger,
	}

	start := clock.Now()
	if err := deps.RunJob(ctx, jobName); err != nil {
		return err
	}
	logger.Info("job completed",
		"job", jobName,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
