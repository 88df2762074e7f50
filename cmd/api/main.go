// Package main is the entry point for the StockWatch alerting API.
//
// It loads configuration, connects to Postgres and AWS, wires the alert
// orchestration pipeline and the recurring job scheduler, mounts the HTTP
// routes, and serves until SIGINT/SIGTERM triggers a graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"

	"stockwatch/internal/alerts"
	"stockwatch/internal/api/handlers"
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
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run owns the startup lifecycle so main can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := core.NewSlogLogger(cfg.LogLevel, cfg.Service)
	typedLogger := core.AdaptLogger(logger)
	logger.Info("stockwatch API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	endpoint := cfg.AWS.EndpointURL
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	clock := types.RealClock{}

	// Repositories.
	alertRepo := db.NewAlertRepository(pool)
	watchRepo := db.NewWatchRepository(pool)
	userRepo := db.NewUserRepository(pool)
	productRepo := db.NewProductRepository(pool)
	packRepo := db.NewWatchPackRepository(pool)

	// Delivery channels: queue-backed push/email/SMS, webhook-relayed Discord.
	httpClient := &http.Client{Timeout: cfg.Dispatch.Timeout}
	relayBase := external.NewBaseClient(httpClient, "partner-webhook", external.DefaultRetryPolicy(), cfg.Dispatch.UserAgent)
	relay := external.NewWebhookClient(relayBase, cfg.Dispatch.PartnerWebhookURL)
	dispatcher := dispatch.NewDispatcher(typedLogger,
		dispatch.NewQueueChannel(types.ChannelWebPush, sqsClient, cfg.AWS.WebPushQueue, clock, typedLogger),
		dispatch.NewQueueChannel(types.ChannelEmail, sqsClient, cfg.AWS.EmailQueue, clock, typedLogger),
		dispatch.NewQueueChannel(types.ChannelSMS, sqsClient, cfg.AWS.SMSQueue, clock, typedLogger),
		dispatch.NewWebhookChannel(relay, clock),
	)

	// Orchestration pipeline.
	orchestrator := alerts.NewOrchestrator(alerts.OrchestratorConfig{
		Alerts:        alertRepo,
		Watches:       watchRepo,
		Users:         userRepo,
		Products:      productRepo,
		Dedup:         alerts.NewDedupGate(alertRepo, cfg.Alerting.DedupWindow, clock),
		Limiter:       alerts.NewRateLimiter(alertRepo, cfg.Alerting.RateLimitWindow, cfg.Alerting.RateLimitMax, clock),
		Quiet:         alerts.NewPrefsQuietHoursGate(userRepo, clock, typedLogger),
		Dispatcher:    dispatcher,
		Metrics:       alerts.NewCloudWatchMetrics(cwClient, cfg.AWS.MetricNamespace, typedLogger),
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

	// Scheduler and recurring jobs.
	sched := scheduler.New(clock, typedLogger)
	var feed scheduler.SignalFeed
	if cfg.Feed.BaseURL != "" {
		feedHTTP := &http.Client{Timeout: cfg.Feed.Timeout}
		feedBase := external.NewBaseClient(feedHTTP, "signal-feed", external.DefaultRetryPolicy(), cfg.Dispatch.UserAgent)
		feed = external.NewFeedClient(feedBase, cfg.Feed.BaseURL)
	}
	err = scheduler.RegisterPlatformJobs(sched, cfg.Jobs, scheduler.JobDeps{
		Orchestrator: orchestrator,
		Monitor:      monitor,
		Feed:         feed,
		HotWindow:    scheduler.NewHotWindow(clock),
		PendingBatch: cfg.Alerting.PendingBatchSize,
		Logger:       typedLogger,
	})
	if err != nil {
		return fmt.Errorf("registering jobs: %w", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	// HTTP surface.
	srv, err := core.NewServer(cfg, logger, pool)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	signalHandler := handlers.NewSignalHandler(orchestrator, logger)
	healthHandler := handlers.NewHealthHandler(monitor, logger)
	jobsHandler := handlers.NewJobsHandler(sched, logger)
	srv.Router().Route("/v1", func(r chi.Router) {
		r.Route("/signals", signalHandler.RegisterRoutes)
		r.Route("/health", healthHandler.RegisterRoutes)
		r.Route("/jobs", jobsHandler.RegisterRoutes)
	})

	return serveHTTP(ctx, srv, cfg, logger)
}

// serveHTTP runs the listener until the context is canceled, then drains
// in-flight requests within the shutdown timeout.
func serveHTTP(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err.Error())
	}
	return srv.Shutdown(shutdownCtx)
}
