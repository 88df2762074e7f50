package types

import (
	"time"
)

// AlertData is the opaque payload attached to every alert. Product, retailer
// and URL fields are required at generation time; price and stock fields are
// supplied when the originating signal carries them.
type AlertData struct {
	ProductName   string   `json:"product_name" validate:"required"`
	RetailerName  string   `json:"retailer_name" validate:"required"`
	ProductURL    string   `json:"product_url" validate:"required,url"`
	CartURL       string   `json:"cart_url,omitempty" validate:"omitempty,url"`
	Price         *float64 `json:"price,omitempty"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	StockLevel    *int     `json:"stock_level,omitempty"`
	// Popularity is a 0-100 demand score attached by the catalog; restock
	// priority escalation keys off it.
	Popularity int `json:"popularity,omitempty"`
}

// Alert is a single notification instance representing one retail availability
// event for one user. Exactly one alert row represents a given
// (user, product, retailer, type) occurrence inside the deduplication window;
// later duplicates are folded into status 'deduplicated' pointing at the
// original via DedupOfID.
type Alert struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	ProductID  string    `json:"product_id" db:"product_id"`
	RetailerID string    `json:"retailer_id" db:"retailer_id"`
	WatchID    string    `json:"watch_id,omitempty" db:"watch_id"`
	Type       AlertType `json:"type" db:"type"`

	Priority AlertPriority `json:"priority" db:"priority"`
	Status   AlertStatus   `json:"status" db:"status"`
	Data     AlertData     `json:"data" db:"data"`

	// DeliveryChannels records the channels actually used on the success path.
	DeliveryChannels []ChannelType `json:"delivery_channels,omitempty" db:"delivery_channels"`

	RetryCount    int        `json:"retry_count" db:"retry_count"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty" db:"scheduled_for"`
	FailureReason string     `json:"failure_reason,omitempty" db:"failure_reason"`
	DedupOfID     string     `json:"dedup_of_id,omitempty" db:"dedup_of_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Watch is a user's standing subscription to monitor one product across a set
// of retailers. The orchestrator mutates only AlertCount and LastAlerted, and
// only on confirmed successful delivery.
type Watch struct {
	ID          string   `json:"id" db:"id"`
	UserID      string   `json:"user_id" db:"user_id"`
	ProductID   string   `json:"product_id" db:"product_id"`
	RetailerIDs []string `json:"retailer_ids" db:"retailer_ids"`

	MaxPrice         *float64         `json:"max_price,omitempty" db:"max_price"`
	AvailabilityType AvailabilityType `json:"availability_type,omitempty" db:"availability_type"`
	ZipCode          string           `json:"zip_code,omitempty" db:"zip_code"`
	RadiusMiles      *int             `json:"radius_miles,omitempty" db:"radius_miles"`

	// AlertPreferences maps alert types to an enabled flag; a missing key
	// means enabled. Managed by the out-of-scope watch CRUD API.
	AlertPreferences map[AlertType]bool `json:"alert_preferences,omitempty" db:"alert_preferences"`

	IsActive    bool       `json:"is_active" db:"is_active"`
	AlertCount  int        `json:"alert_count" db:"alert_count"`
	LastAlerted *time.Time `json:"last_alerted,omitempty" db:"last_alerted"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WantsType reports whether this watch has the given alert type enabled.
// An absent preference entry defaults to enabled.
func (w *Watch) WantsType(t AlertType) bool {
	if w.AlertPreferences == nil {
		return true
	}
	enabled, ok := w.AlertPreferences[t]
	if !ok {
		return true
	}
	return enabled
}

// WatchPack groups related products for bulk subscription. SubscriberCount is
// denormalized; health checks report drift against the actual subscription
// rows without auto-correcting.
type WatchPack struct {
	ID              string   `json:"id" db:"id"`
	Name            string   `json:"name" db:"name"`
	ProductIDs      []string `json:"product_ids" db:"product_ids"`
	SubscriberCount int      `json:"subscriber_count" db:"subscriber_count"`
	IsActive        bool     `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PackSubscription links a user to a WatchPack. Stale subscriptions (user or
// pack gone inactive) are removed by the cleanup job.
type PackSubscription struct {
	ID        string    `json:"id" db:"id"`
	PackID    string    `json:"pack_id" db:"pack_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// QuietHoursConfig is a user's do-not-disturb window. Start and End are
// "HH:MM" wall-clock strings evaluated in Timezone; overnight windows
// (start > end) span midnight. Days empty means every day.
type QuietHoursConfig struct {
	Enabled  bool     `json:"enabled"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Timezone string   `json:"timezone"`
	Days     []string `json:"days,omitempty"`
}

// NotificationPreferences holds a user's channel opt-ins and quiet hours.
type NotificationPreferences struct {
	WebPushEnabled bool              `json:"web_push_enabled"`
	EmailEnabled   bool              `json:"email_enabled"`
	SMSEnabled     bool              `json:"sms_enabled"`
	DiscordEnabled bool              `json:"discord_enabled"`
	QuietHours     *QuietHoursConfig `json:"quiet_hours,omitempty"`
}

// EnabledChannels returns the channels the user has opted into, in the fixed
// platform preference order.
func (p NotificationPreferences) EnabledChannels() []ChannelType {
	var out []ChannelType
	if p.WebPushEnabled {
		out = append(out, ChannelWebPush)
	}
	if p.EmailEnabled {
		out = append(out, ChannelEmail)
	}
	if p.SMSEnabled {
		out = append(out, ChannelSMS)
	}
	if p.DiscordEnabled {
		out = append(out, ChannelDiscord)
	}
	return out
}

// User is the alert recipient. Account management is out of scope; the
// orchestrator only reads identity, verification state, and preferences.
type User struct {
	ID            string                  `json:"id" db:"id"`
	Email         string                  `json:"email" db:"email"`
	EmailVerified bool                    `json:"email_verified" db:"email_verified"`
	Preferences   NotificationPreferences `json:"preferences" db:"preferences"`
	CreatedAt     time.Time               `json:"created_at" db:"created_at"`
}

// Product is a catalog entry referenced by watches and alerts. Catalog
// ingestion is out of scope; the pipeline reads identity and active state.
type Product struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	Popularity int       `json:"popularity" db:"popularity"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// WatchHealth is the structured report for a single watch.
type WatchHealth struct {
	WatchID     string     `json:"watch_id"`
	UserID      string     `json:"user_id"`
	ProductID   string     `json:"product_id"`
	IsHealthy   bool       `json:"is_healthy"`
	AlertCount  int        `json:"alert_count"`
	LastAlerted *time.Time `json:"last_alerted,omitempty"`
	Issues      []string   `json:"issues,omitempty"`
}

// PackHealth is the structured report for a WatchPack.
type PackHealth struct {
	PackID             string   `json:"pack_id"`
	IsHealthy          bool     `json:"is_healthy"`
	ProductCount       int      `json:"product_count"`
	ActiveProductCount int      `json:"active_product_count"`
	SubscriberCount    int      `json:"subscriber_count"`
	ActualSubscribers  int      `json:"actual_subscribers"`
	Issues             []string `json:"issues,omitempty"`
}

// SystemHealth aggregates platform-wide watch health. HealthyEstimate is a
// sampled statistical estimate, not an exact count; see the health monitor.
type SystemHealth struct {
	TotalWatches    int     `json:"total_watches"`
	ActiveWatches   int     `json:"active_watches"`
	TotalPacks      int     `json:"total_packs"`
	ActivePacks     int     `json:"active_packs"`
	SampleSize      int     `json:"sample_size"`
	SampledHealthy  int     `json:"sampled_healthy"`
	HealthyEstimate int     `json:"healthy_estimate"`
	HealthyRatio    float64 `json:"healthy_ratio"`
}

// CleanupReport counts the actions taken by one cleanup pass. A second
// immediate pass must report all zeros (idempotence).
type CleanupReport struct {
	WatchesDeactivated   int `json:"watches_deactivated"`
	SubscriptionsRemoved int `json:"subscriptions_removed"`
	AlertsArchived       int `json:"alerts_archived"`
	AlertsDeleted        int `json:"alerts_deleted"`
}
