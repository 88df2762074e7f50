package types

// AlertType identifies the kind of retail availability event an alert carries.
type AlertType string

const (
	AlertRestock   AlertType = "restock"
	AlertPriceDrop AlertType = "price_drop"
	AlertLowStock  AlertType = "low_stock"
	AlertPreOrder  AlertType = "pre_order"
)

// KnownAlertTypes is the closed set of valid alert types. Strategy dispatch
// and validation both key off this list.
var KnownAlertTypes = []AlertType{
	AlertRestock,
	AlertPriceDrop,
	AlertLowStock,
	AlertPreOrder,
}

// Valid reports whether t is one of the four known alert types.
func (t AlertType) Valid() bool {
	switch t {
	case AlertRestock, AlertPriceDrop, AlertLowStock, AlertPreOrder:
		return true
	}
	return false
}

// AlertPriority determines ordering and channel escalation for delivery.
type AlertPriority string

const (
	PriorityLow    AlertPriority = "low"
	PriorityMedium AlertPriority = "medium"
	PriorityHigh   AlertPriority = "high"
	PriorityUrgent AlertPriority = "urgent"
)

// Valid reports whether p is a known priority level.
func (p AlertPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AlertStatus represents the lifecycle state of an alert.
type AlertStatus string

const (
	// AlertStatusPending means the alert row exists but delivery has not
	// completed. Scheduled (quiet-hours deferred) alerts stay pending with
	// a non-nil scheduled_for.
	AlertStatusPending      AlertStatus = "pending"
	AlertStatusSent         AlertStatus = "sent"
	AlertStatusFailed       AlertStatus = "failed"
	AlertStatusDeduplicated AlertStatus = "deduplicated"
)

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	ChannelWebPush ChannelType = "web_push"
	ChannelEmail   ChannelType = "email"
	ChannelSMS     ChannelType = "sms"
	ChannelDiscord ChannelType = "discord"
)

// AvailabilityType describes how a watch expects the product to be fulfilled.
type AvailabilityType string

const (
	AvailabilityOnline  AvailabilityType = "online"
	AvailabilityInStore AvailabilityType = "in_store"
	AvailabilityBoth    AvailabilityType = "both"
)

// GenerateOutcome is the caller-visible result classification of a
// GenerateAlert call.
type GenerateOutcome string

const (
	OutcomeProcessed    GenerateOutcome = "processed"
	OutcomeScheduled    GenerateOutcome = "scheduled"
	OutcomeDeduplicated GenerateOutcome = "deduplicated"
	OutcomeFailed       GenerateOutcome = "failed"
)
