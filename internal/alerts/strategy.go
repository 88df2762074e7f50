package alerts

import (
	"stockwatch/internal/types"
)

// Strategy computes priority and delivery channels for one alert type.
// The set of alert types is closed, so dispatch is a switch in strategyFor
// rather than an open registry.
type Strategy interface {
	// CalculatePriority derives the alert priority from the signal payload.
	CalculatePriority(data types.AlertData) types.AlertPriority

	// DeliveryChannels returns the user's enabled channels intersected with
	// the channels meaningful for this alert type, preserving the user's
	// preference order. An empty result means the alert cannot be delivered.
	DeliveryChannels(user *types.User, alert *types.Alert) []types.ChannelType
}

// strategyFor returns the strategy for a known alert type. Callers validate
// the type first; an unknown type falls back to the restock strategy rather
// than panicking mid-pipeline.
func strategyFor(t types.AlertType) Strategy {
	switch t {
	case types.AlertPriceDrop:
		return priceDropStrategy{}
	case types.AlertLowStock:
		return lowStockStrategy{}
	case types.AlertPreOrder:
		return preOrderStrategy{}
	default:
		return restockStrategy{}
	}
}

// intersectChannels filters the user's enabled channels down to the
// meaningful set for an alert type, keeping the user's order.
func intersectChannels(user *types.User, meaningful ...types.ChannelType) []types.ChannelType {
	allowed := make(map[types.ChannelType]bool, len(meaningful))
	for _, c := range meaningful {
		allowed[c] = true
	}
	var out []types.ChannelType
	for _, c := range user.Preferences.EnabledChannels() {
		if allowed[c] {
			out = append(out, c)
		}
	}
	return out
}

// restockStrategy: restocks are the most perishable event on the platform.
// High-demand products escalate so they can cut ahead in delivery queues.
type restockStrategy struct{}

func (restockStrategy) CalculatePriority(data types.AlertData) types.AlertPriority {
	switch {
	case data.Popularity >= 80:
		return types.PriorityUrgent
	case data.Popularity >= 50:
		return types.PriorityHigh
	default:
		return types.PriorityMedium
	}
}

func (restockStrategy) DeliveryChannels(user *types.User, alert *types.Alert) []types.ChannelType {
	return intersectChannels(user,
		types.ChannelWebPush, types.ChannelEmail, types.ChannelSMS, types.ChannelDiscord)
}

// priceDropStrategy escalates with the discount percentage. Without both
// prices the drop cannot be sized and stays medium.
type priceDropStrategy struct{}

func (priceDropStrategy) CalculatePriority(data types.AlertData) types.AlertPriority {
	if data.Price == nil || data.OriginalPrice == nil || *data.OriginalPrice <= 0 {
		return types.PriorityMedium
	}
	pct := (*data.OriginalPrice - *data.Price) / *data.OriginalPrice * 100
	switch {
	case pct >= 50:
		return types.PriorityUrgent
	case pct >= 25:
		return types.PriorityHigh
	case pct >= 10:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

func (priceDropStrategy) DeliveryChannels(user *types.User, alert *types.Alert) []types.ChannelType {
	return intersectChannels(user,
		types.ChannelWebPush, types.ChannelEmail, types.ChannelDiscord)
}

// lowStockStrategy: only push-style channels make sense; by the time an email
// digest lands the stock is usually gone.
type lowStockStrategy struct{}

func (lowStockStrategy) CalculatePriority(data types.AlertData) types.AlertPriority {
	if data.StockLevel != nil && *data.StockLevel <= 3 {
		return types.PriorityHigh
	}
	return types.PriorityMedium
}

func (lowStockStrategy) DeliveryChannels(user *types.User, alert *types.Alert) []types.ChannelType {
	return intersectChannels(user, types.ChannelWebPush, types.ChannelSMS)
}

// preOrderStrategy: pre-orders open on announced schedules, so they are less
// perishable than restocks unless demand is extreme.
type preOrderStrategy struct{}

func (preOrderStrategy) CalculatePriority(data types.AlertData) types.AlertPriority {
	if data.Popularity >= 80 {
		return types.PriorityHigh
	}
	return types.PriorityMedium
}

func (preOrderStrategy) DeliveryChannels(user *types.User, alert *types.Alert) []types.ChannelType {
	return intersectChannels(user,
		types.ChannelEmail, types.ChannelWebPush, types.ChannelDiscord)
}
