package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used throughout the platform.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// QuietTimeResult is the gate's verdict for a user at a point in time.
type QuietTimeResult struct {
	IsQuietTime    bool       `json:"is_quiet_time"`
	NextActiveTime *time.Time `json:"next_active_time,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// QuietHoursGate decides whether "now" falls inside a user's do-not-disturb
// window. The orchestrator never interprets the raw schedule; timezone and
// day-of-week rules live entirely behind this contract.
type QuietHoursGate interface {
	IsQuietTime(ctx context.Context, userID string) (QuietTimeResult, error)
}

// DeliveryResult reports the per-channel outcome of one dispatch attempt.
type DeliveryResult struct {
	Success            bool          `json:"success"`
	SuccessfulChannels []ChannelType `json:"successful_channels,omitempty"`
	FailedChannels     []ChannelType `json:"failed_channels,omitempty"`
	Error              string        `json:"error,omitempty"`
}

// Dispatcher attempts delivery of one alert across one or more channels.
// Implementations must tolerate being handed a still-pending alert and must
// not retry internally: retry policy belongs to the orchestrator.
type Dispatcher interface {
	DeliverAlert(ctx context.Context, alert *Alert, user *User, channels []ChannelType) (DeliveryResult, error)
}

// HotWindowFlag exposes whether an externally predicted window of elevated
// restock likelihood is currently active. The predictions refresh job writes
// it; the escalation job reads it.
type HotWindowFlag interface {
	Active() bool
	Set(active bool, until time.Time)
}
