package types

import (
	"context"
	"reflect"
	"testing"
)

func TestWatchWantsType(t *testing.T) {
	w := &Watch{}
	if !w.WantsType(AlertRestock) {
		t.Error("nil preferences must default to enabled")
	}

	w.AlertPreferences = map[AlertType]bool{
		AlertRestock:   true,
		AlertPriceDrop: false,
	}
	if !w.WantsType(AlertRestock) {
		t.Error("explicitly enabled type must report true")
	}
	if w.WantsType(AlertPriceDrop) {
		t.Error("explicitly disabled type must report false")
	}
	if !w.WantsType(AlertLowStock) {
		t.Error("absent entry must default to enabled")
	}
}

func TestEnabledChannels(t *testing.T) {
	prefs := NotificationPreferences{
		WebPushEnabled: true,
		SMSEnabled:     true,
		DiscordEnabled: true,
	}
	want := []ChannelType{ChannelWebPush, ChannelSMS, ChannelDiscord}
	if got := prefs.EnabledChannels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if got := (NotificationPreferences{}).EnabledChannels(); len(got) != 0 {
		t.Fatalf("no opt-ins must yield no channels, got %v", got)
	}
}

func TestAlertTypeValid(t *testing.T) {
	for _, at := range KnownAlertTypes {
		if !at.Valid() {
			t.Errorf("%s must be valid", at)
		}
	}
	if AlertType("flash_sale").Valid() {
		t.Error("unknown type must be invalid")
	}
	if AlertType("").Valid() {
		t.Error("empty type must be invalid")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_42")
	if got := GetRequestID(ctx); got != "req_42" {
		t.Fatalf("got %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Fatalf("absent id must be empty, got %q", got)
	}
}
