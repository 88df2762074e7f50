package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All services MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidType  ErrorCode = "validation_invalid_alert_type"
	ErrCodeValidationInvalidURL   ErrorCode = "validation_invalid_product_url"
	ErrCodeValidationFailed       ErrorCode = "validation_failed"

	// Limits (429)
	ErrCodeRateLimit ErrorCode = "rate_limit_exceeded"

	// Not Found (404)
	ErrCodeNotFoundAlert   ErrorCode = "not_found_alert"
	ErrCodeNotFoundWatch   ErrorCode = "not_found_watch"
	ErrCodeNotFoundPack    ErrorCode = "not_found_watch_pack"
	ErrCodeNotFoundUser    ErrorCode = "not_found_user"
	ErrCodeNotFoundProduct ErrorCode = "not_found_product"
	ErrCodeNotFoundJob     ErrorCode = "not_found_job"

	// Delivery (502)
	ErrCodeDeliveryFailed  ErrorCode = "delivery_failed"
	ErrCodeDeliveryNoRoute ErrorCode = "delivery_no_channels"

	// Scheduler (500)
	ErrCodeSchedulerJob       ErrorCode = "scheduler_job_failed"
	ErrCodeSchedulerDuplicate ErrorCode = "scheduler_duplicate_job"
	ErrCodeSchedulerSchedule  ErrorCode = "scheduler_invalid_schedule"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB          ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamQueue       ErrorCode = "upstream_queue_unavailable"
	ErrCodeUpstreamPartner     ErrorCode = "upstream_partner_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the API layer to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case s == string(ErrCodeRateLimit):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "delivery_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "scheduler_"):
		return http.StatusInternalServerError // 500
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the platform.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// IsNotFound reports whether err is (or wraps) an AppError from the
// not-found family.
func IsNotFound(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return strings.HasPrefix(string(appErr.Code), "not_found")
}

// NewValidationError aggregates a list of violated rules into a single error.
// Validation is all-or-nothing: the caller must not apply partial side effects
// when any rule fails, so every violation is collected and reported at once.
func NewValidationError(violations []string) *AppError {
	return &AppError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("validation failed: %s", strings.Join(violations, "; ")),
		Details: map[string]any{"violations": violations},
	}
}

// NewRateLimitError reports a per-user alert quota breach, carrying the
// observed count and the configured cap.
func NewRateLimitError(userID string, observed, cap int) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimit,
		Message: fmt.Sprintf("user %s has %d alerts in the current window (cap %d)", userID, observed, cap),
		Details: map[string]any{
			"user_id":  userID,
			"observed": observed,
			"cap":      cap,
		},
	}
}
