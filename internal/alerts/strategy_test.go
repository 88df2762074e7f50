package alerts

import (
	"testing"

	"stockwatch/internal/types"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestRestockPriority(t *testing.T) {
	cases := []struct {
		popularity int
		want       types.AlertPriority
	}{
		{95, types.PriorityUrgent},
		{80, types.PriorityUrgent},
		{79, types.PriorityHigh},
		{50, types.PriorityHigh},
		{49, types.PriorityMedium},
		{0, types.PriorityMedium},
	}
	for _, tc := range cases {
		got := restockStrategy{}.CalculatePriority(types.AlertData{Popularity: tc.popularity})
		if got != tc.want {
			t.Errorf("popularity %d: expected %s, got %s", tc.popularity, tc.want, got)
		}
	}
}

func TestPriceDropPriority(t *testing.T) {
	cases := []struct {
		name     string
		price    *float64
		original *float64
		want     types.AlertPriority
	}{
		{"half off", floatPtr(50), floatPtr(100), types.PriorityUrgent},
		{"quarter off", floatPtr(75), floatPtr(100), types.PriorityHigh},
		{"ten percent", floatPtr(90), floatPtr(100), types.PriorityMedium},
		{"token discount", floatPtr(99), floatPtr(100), types.PriorityLow},
		{"missing original", floatPtr(50), nil, types.PriorityMedium},
		{"missing price", nil, floatPtr(100), types.PriorityMedium},
		{"zero original", floatPtr(50), floatPtr(0), types.PriorityMedium},
	}
	for _, tc := range cases {
		got := priceDropStrategy{}.CalculatePriority(types.AlertData{
			Price:         tc.price,
			OriginalPrice: tc.original,
		})
		if got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestLowStockPriority(t *testing.T) {
	if got := (lowStockStrategy{}).CalculatePriority(types.AlertData{StockLevel: intPtr(2)}); got != types.PriorityHigh {
		t.Errorf("near-empty shelf: expected high, got %s", got)
	}
	if got := (lowStockStrategy{}).CalculatePriority(types.AlertData{StockLevel: intPtr(10)}); got != types.PriorityMedium {
		t.Errorf("comfortable stock: expected medium, got %s", got)
	}
	if got := (lowStockStrategy{}).CalculatePriority(types.AlertData{}); got != types.PriorityMedium {
		t.Errorf("unknown stock: expected medium, got %s", got)
	}
}

func TestPreOrderPriority(t *testing.T) {
	if got := (preOrderStrategy{}).CalculatePriority(types.AlertData{Popularity: 85}); got != types.PriorityHigh {
		t.Errorf("hot pre-order: expected high, got %s", got)
	}
	if got := (preOrderStrategy{}).CalculatePriority(types.AlertData{Popularity: 40}); got != types.PriorityMedium {
		t.Errorf("quiet pre-order: expected medium, got %s", got)
	}
}

func TestDeliveryChannels_IntersectsWithPreferences(t *testing.T) {
	user := &types.User{
		Preferences: types.NotificationPreferences{
			WebPushEnabled: true,
			SMSEnabled:     true,
			DiscordEnabled: true,
		},
	}
	alert := &types.Alert{Type: types.AlertPriceDrop}

	// Price drops never go to SMS, and email is off for this user.
	got := priceDropStrategy{}.DeliveryChannels(user, alert)
	want := []types.ChannelType{types.ChannelWebPush, types.ChannelDiscord}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v in preference order, got %v", want, got)
		}
	}
}

func TestDeliveryChannels_EmptyWhenNothingEnabled(t *testing.T) {
	user := &types.User{}
	if got := (restockStrategy{}).DeliveryChannels(user, &types.Alert{}); len(got) != 0 {
		t.Fatalf("expected no channels, got %v", got)
	}
}

func TestStrategyFor(t *testing.T) {
	if _, ok := strategyFor(types.AlertPriceDrop).(priceDropStrategy); !ok {
		t.Fatal("price_drop must resolve to the price drop strategy")
	}
	if _, ok := strategyFor(types.AlertLowStock).(lowStockStrategy); !ok {
		t.Fatal("low_stock must resolve to the low stock strategy")
	}
	if _, ok := strategyFor(types.AlertPreOrder).(preOrderStrategy); !ok {
		t.Fatal("pre_order must resolve to the pre-order strategy")
	}
	if _, ok := strategyFor(types.AlertType("unknown")).(restockStrategy); !ok {
		t.Fatal("unknown types must fall back to the restock strategy")
	}
}
