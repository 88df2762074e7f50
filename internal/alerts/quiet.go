package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockwatch/internal/types"
)

// Compile-time assertion that PrefsQuietHoursGate implements QuietHoursGate.
var _ types.QuietHoursGate = (*PrefsQuietHoursGate)(nil)

// PrefsQuietHoursGate is the default QuietHoursGate implementation. It
// evaluates the quiet-hours schedule stored in the user's notification
// preferences: wall-clock window, timezone, optional day-of-week restriction,
// overnight spans. The orchestrator only ever sees the boolean+instant
// verdict, so alternative gates (e.g. an org-level policy service) can swap
// in without touching delivery logic.
type PrefsQuietHoursGate struct {
	users  UserStore
	clock  types.Clock
	logger types.Logger
}

// NewPrefsQuietHoursGate creates a gate backed by the user store.
func NewPrefsQuietHoursGate(users UserStore, clock types.Clock, logger types.Logger) *PrefsQuietHoursGate {
	return &PrefsQuietHoursGate{
		users:  users,
		clock:  clock,
		logger: logger,
	}
}

// IsQuietTime reports whether the user is currently inside their configured
// do-not-disturb window, and if so when delivery may resume.
//
// Evaluation failures (bad timezone, malformed schedule) fail open: the alert
// delivers rather than silently parking, and the problem is logged.
func (g *PrefsQuietHoursGate) IsQuietTime(ctx context.Context, userID string) (types.QuietTimeResult, error) {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return types.QuietTimeResult{}, err
	}

	cfg := user.Preferences.QuietHours
	if cfg == nil || !cfg.Enabled {
		return types.QuietTimeResult{IsQuietTime: false}, nil
	}

	result, evalErr := g.evaluate(cfg)
	if evalErr != nil {
		g.logger.Error("quiet hours evaluation failed, treating as active hours",
			"error", evalErr.Error(),
			"user_id", userID,
		)
		return types.QuietTimeResult{IsQuietTime: false, Reason: "quiet hours evaluation failed, fail-open"}, nil
	}
	return result, nil
}

// evaluate checks the configured window against the current time in the
// user's timezone.
func (g *PrefsQuietHoursGate) evaluate(cfg *types.QuietHoursConfig) (types.QuietTimeResult, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return types.QuietTimeResult{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	now := g.clock.Now().In(loc)
	if !dayMatches(cfg.Days, strings.ToLower(now.Weekday().String())) {
		return types.QuietTimeResult{IsQuietTime: false}, nil
	}

	start, err := parseTimeOfDay(cfg.Start)
	if err != nil {
		return types.QuietTimeResult{}, fmt.Errorf("invalid quiet hours start %q: %w", cfg.Start, err)
	}
	end, err := parseTimeOfDay(cfg.End)
	if err != nil {
		return types.QuietTimeResult{}, fmt.Errorf("invalid quiet hours end %q: %w", cfg.End, err)
	}

	inQuiet, resumeAt := isInQuietPeriod(now, start, end)
	if !inQuiet {
		return types.QuietTimeResult{IsQuietTime: false}, nil
	}

	resumeUTC := resumeAt.UTC()
	return types.QuietTimeResult{
		IsQuietTime:    true,
		NextActiveTime: &resumeUTC,
		Reason:         fmt.Sprintf("quiet hours active (%s-%s %s)", cfg.Start, cfg.End, tz),
	}, nil
}

// timeOfDay represents a wall-clock time with hour and minute components.
type timeOfDay struct {
	hour   int
	minute int
}

// toMinutes converts a timeOfDay to minutes since midnight for comparison.
func (t timeOfDay) toMinutes() int {
	return t.hour*60 + t.minute
}

// parseTimeOfDay parses a "HH:MM" string into a timeOfDay.
func parseTimeOfDay(s string) (timeOfDay, error) {
	var h, m int
	n, err := fmt.Sscanf(s, "%d:%d", &h, &m)
	if err != nil || n != 2 {
		return timeOfDay{}, fmt.Errorf("expected HH:MM format, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return timeOfDay{}, fmt.Errorf("time out of range: %q", s)
	}
	return timeOfDay{hour: h, minute: m}, nil
}

// dayMatches checks if the current day name appears in the day list.
// Day names are compared case-insensitively. An empty days list matches all days.
func dayMatches(days []string, currentDay string) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if strings.EqualFold(d, currentDay) {
			return true
		}
	}
	return false
}

// isInQuietPeriod checks if the given time falls within the quiet period
// defined by start and end times. Handles overnight periods (e.g., 22:00-08:00).
// Returns whether the time is in the quiet period and the resumeAt time
// (when the quiet period ends in the same timezone).
func isInQuietPeriod(now time.Time, start, end timeOfDay) (bool, time.Time) {
	nowMinutes := now.Hour()*60 + now.Minute()
	startMinutes := start.toMinutes()
	endMinutes := end.toMinutes()

	if startMinutes <= endMinutes {
		// Same-day period (e.g., 01:00-08:00)
		if nowMinutes >= startMinutes && nowMinutes < endMinutes {
			resumeAt := time.Date(
				now.Year(), now.Month(), now.Day(),
				end.hour, end.minute, 0, 0, now.Location(),
			)
			return true, resumeAt
		}
		return false, time.Time{}
	}

	// Overnight period (e.g., 22:00-08:00)
	if nowMinutes >= startMinutes {
		// Before midnight: resume is tomorrow at end time.
		tomorrow := now.AddDate(0, 0, 1)
		resumeAt := time.Date(
			tomorrow.Year(), tomorrow.Month(), tomorrow.Day(),
			end.hour, end.minute, 0, 0, now.Location(),
		)
		return true, resumeAt
	}
	if nowMinutes < endMinutes {
		// After midnight: resume is today at end time.
		resumeAt := time.Date(
			now.Year(), now.Month(), now.Day(),
			end.hour, end.minute, 0, 0, now.Location(),
		)
		return true, resumeAt
	}

	return false, time.Time{}
}
