// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "parsing"
	ErrValidation ConfigErrorType = "validation"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the StockWatch configuration.
//
// godotenv.Load() silently succeeds if no .env file exists in the working
// directory and does NOT override existing environment variables, so the OS
// environment always wins.
func LoadConfig() (*Config, error) {
	// Enforce UTC to keep dedup windows and quiet-hours math stable across
	// deployment regions.
	time.Local = time.UTC

	_ = godotenv.Load()

	// The empty prefix "" means envconfig uses the exact tag values
	// (e.g., envconfig:"APP_ENV" reads APP_ENV directly).
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration failed validation",
			Err:     err,
		}
	}

	if err := validateAlerting(cfg.Alerting); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateAlerting applies cross-field rules that struct tags cannot express.
func validateAlerting(a AlertingConfig) error {
	if a.DedupWindow <= 0 {
		return &ConfigError{Type: ErrValidation, Message: "ALERT_DEDUP_WINDOW must be positive"}
	}
	if a.RateLimitWindow <= 0 {
		return &ConfigError{Type: ErrValidation, Message: "ALERT_RATE_WINDOW must be positive"}
	}
	if a.RateLimitMax <= 0 {
		return &ConfigError{Type: ErrValidation, Message: "ALERT_RATE_MAX must be positive"}
	}
	if a.MaxRetryAttempts < 0 {
		return &ConfigError{Type: ErrValidation, Message: "ALERT_MAX_RETRIES must not be negative"}
	}
	return nil
}
