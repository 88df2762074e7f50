package dispatch

import (
	"context"
	"errors"
	"testing"

	"stockwatch/internal/types"
)

type mockLogger struct{}

func (l *mockLogger) Info(msg string, args ...any)  {}
func (l *mockLogger) Error(msg string, args ...any) {}
func (l *mockLogger) Warn(msg string, args ...any)  {}
func (l *mockLogger) With(args ...any) types.Logger { return l }

// mockChannel records sends and fails on demand.
type mockChannel struct {
	channelType types.ChannelType
	err         error
	sends       int
}

func (c *mockChannel) Type() types.ChannelType { return c.channelType }

func (c *mockChannel) Send(ctx context.Context, alert *types.Alert, user *types.User) error {
	c.sends++
	return c.err
}

func dispatchFixtures() (*types.Alert, *types.User) {
	alert := &types.Alert{
		ID:       "alrt_1",
		UserID:   "user_1",
		Type:     types.AlertRestock,
		Priority: types.PriorityUrgent,
	}
	user := &types.User{ID: "user_1", Email: "collector@example.com"}
	return alert, user
}

func TestDeliverAlert_AllChannelsSucceed(t *testing.T) {
	push := &mockChannel{channelType: types.ChannelWebPush}
	email := &mockChannel{channelType: types.ChannelEmail}
	d := NewDispatcher(&mockLogger{}, push, email)
	alert, user := dispatchFixtures()

	result, err := d.DeliverAlert(context.Background(), alert, user,
		[]types.ChannelType{types.ChannelWebPush, types.ChannelEmail})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || len(result.SuccessfulChannels) != 2 || len(result.FailedChannels) != 0 {
		t.Fatalf("expected clean fan-out, got %+v", result)
	}
	if result.SuccessfulChannels[0] != types.ChannelWebPush {
		t.Fatalf("caller order must be preserved, got %v", result.SuccessfulChannels)
	}
	if push.sends != 1 || email.sends != 1 {
		t.Fatalf("each channel must be sent exactly once, got %d/%d", push.sends, email.sends)
	}
}

func TestDeliverAlert_PartialFailureIsSuccess(t *testing.T) {
	push := &mockChannel{channelType: types.ChannelWebPush, err: errors.New("endpoint gone")}
	email := &mockChannel{channelType: types.ChannelEmail}
	d := NewDispatcher(&mockLogger{}, push, email)
	alert, user := dispatchFixtures()

	result, err := d.DeliverAlert(context.Background(), alert, user,
		[]types.ChannelType{types.ChannelWebPush, types.ChannelEmail})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("one accepting channel is success, got %+v", result)
	}
	if len(result.SuccessfulChannels) != 1 || result.SuccessfulChannels[0] != types.ChannelEmail {
		t.Fatalf("expected email success, got %v", result.SuccessfulChannels)
	}
	if len(result.FailedChannels) != 1 || result.FailedChannels[0] != types.ChannelWebPush {
		t.Fatalf("expected web_push failure reported, got %v", result.FailedChannels)
	}
	if result.Error != "" {
		t.Fatalf("partial success must not carry an error string, got %q", result.Error)
	}
}

func TestDeliverAlert_TotalFailureCarriesFirstError(t *testing.T) {
	push := &mockChannel{channelType: types.ChannelWebPush, err: errors.New("endpoint gone")}
	email := &mockChannel{channelType: types.ChannelEmail, err: errors.New("mailbox full")}
	d := NewDispatcher(&mockLogger{}, push, email)
	alert, user := dispatchFixtures()

	result, err := d.DeliverAlert(context.Background(), alert, user,
		[]types.ChannelType{types.ChannelWebPush, types.ChannelEmail})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatalf("all channels failing is not success: %+v", result)
	}
	if result.Error != "endpoint gone" {
		t.Fatalf("expected the first failure's error, got %q", result.Error)
	}
}

func TestDeliverAlert_UnconfiguredChannel(t *testing.T) {
	d := NewDispatcher(&mockLogger{}, &mockChannel{channelType: types.ChannelEmail})
	alert, user := dispatchFixtures()

	result, err := d.DeliverAlert(context.Background(), alert, user,
		[]types.ChannelType{types.ChannelSMS})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || result.Error != "channel sms is not configured" {
		t.Fatalf("expected unconfigured channel failure, got %+v", result)
	}
}

func TestDeliverAlert_NoChannelsRequested(t *testing.T) {
	d := NewDispatcher(&mockLogger{})
	alert, user := dispatchFixtures()

	result, err := d.DeliverAlert(context.Background(), alert, user, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || result.Error != "no channels requested" {
		t.Fatalf("expected empty-request failure, got %+v", result)
	}
}
