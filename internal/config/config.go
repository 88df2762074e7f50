// Package config defines the global configuration structure for the StockWatch
// platform. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values come from the OS environment, with a local .env file as a
// development-time fallback. Any missing required value or invalid format
// causes the application to exit immediately on startup (fail fast).
package config

import (
	"time"
)

// Config is the top-level configuration struct for the StockWatch platform.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"stockwatch-alerts"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server    ServerConfig
	Database  DatabaseConfig
	AWS       AWSConfig
	Alerting  AlertingConfig
	Jobs      JobsConfig
	Health    HealthConfig
	Dispatch  DispatchConfig
	Feed      FeedConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
// Each delivery channel drains its own SQS queue; the transport workers that
// consume them live outside this service.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	WebPushQueue string `envconfig:"SQS_WEB_PUSH" validate:"omitempty,url"`
	EmailQueue   string `envconfig:"SQS_EMAIL" validate:"omitempty,url"`
	SMSQueue     string `envconfig:"SQS_SMS" validate:"omitempty,url"`

	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"StockWatch"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// AlertingConfig holds the gates and limits applied by the alert orchestrator.
type AlertingConfig struct {
	DedupWindow        time.Duration `envconfig:"ALERT_DEDUP_WINDOW" default:"15m"`
	RateLimitWindow    time.Duration `envconfig:"ALERT_RATE_WINDOW" default:"1h"`
	RateLimitMax       int           `envconfig:"ALERT_RATE_MAX" default:"50"`
	MaxRetryAttempts   int           `envconfig:"ALERT_MAX_RETRIES" default:"3"`
	QuietHoursFallback time.Duration `envconfig:"ALERT_QUIET_FALLBACK" default:"1h"`
	PendingBatchSize   int           `envconfig:"ALERT_PENDING_BATCH" default:"100"`
}

// JobsConfig holds the cron expressions for every scheduled job. Expressions
// use the standard five-field cron syntax accepted by robfig/cron, plus the
// @every shorthand.
type JobsConfig struct {
	AvailabilityScan   string `envconfig:"JOB_AVAILABILITY_SCAN" default:"@every 2m"`
	HotWindowCheck     string `envconfig:"JOB_HOT_WINDOW_CHECK" default:"@every 30s"`
	PredictionsRefresh string `envconfig:"JOB_PREDICTIONS_REFRESH" default:"@every 10m"`
	ProcessPending     string `envconfig:"JOB_PROCESS_PENDING" default:"@every 5m"`
	RetryFailed        string `envconfig:"JOB_RETRY_FAILED" default:"@every 10m"`
	Cleanup            string `envconfig:"JOB_CLEANUP" default:"0 3 * * *"`
	CatalogIngest      string `envconfig:"JOB_CATALOG_INGEST" default:"0 4 * * *"`
}

// HealthConfig tunes the watch health monitor.
type HealthConfig struct {
	SampleSize     int           `envconfig:"HEALTH_SAMPLE_SIZE" default:"100"`
	UserPageSize   int           `envconfig:"HEALTH_USER_PAGE_SIZE" default:"200"`
	StaleThreshold time.Duration `envconfig:"HEALTH_STALE_THRESHOLD" default:"720h"` // 30 days
	AlertRetention time.Duration `envconfig:"ALERT_RETENTION" default:"2160h"`       // 90 days
	ArchiveDir     string        `envconfig:"ALERT_ARCHIVE_DIR" default:"/var/lib/stockwatch/archive"`
}

// DispatchConfig holds settings for outbound delivery dispatch.
type DispatchConfig struct {
	PartnerWebhookURL string        `envconfig:"PARTNER_WEBHOOK_URL" validate:"omitempty,url"`
	UserAgent         string        `envconfig:"DISPATCH_USER_AGENT" default:"StockWatch-Dispatch/1.0"`
	Timeout           time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"10s"`
}

// FeedConfig holds settings for the upstream monitoring feed that supplies
// availability signals, hot-window forecasts, and catalog sync triggers.
type FeedConfig struct {
	BaseURL string        `envconfig:"SIGNAL_FEED_URL" validate:"omitempty,url"`
	Timeout time.Duration `envconfig:"SIGNAL_FEED_TIMEOUT" default:"30s"`
}
