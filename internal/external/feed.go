package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stockwatch/internal/types"
)

// AvailabilitySignal is one upstream retail event reported by the monitoring
// feed. The scan job converts each into a GenerateAlert call.
type AvailabilitySignal struct {
	UserID     string              `json:"user_id"`
	ProductID  string              `json:"product_id"`
	RetailerID string              `json:"retailer_id"`
	WatchID    string              `json:"watch_id,omitempty"`
	Type       types.AlertType     `json:"type"`
	Priority   types.AlertPriority `json:"priority,omitempty"`
	Data       types.AlertData     `json:"data"`
}

// HotWindowForecast is the predictions service's verdict on whether a window
// of elevated restock likelihood is open.
type HotWindowForecast struct {
	Active bool      `json:"active"`
	Until  time.Time `json:"until"`
}

// FeedClient talks to the upstream monitoring feed through the resilient
// BaseClient: pending availability signals, hot-window forecasts, and the
// catalog sync trigger.
type FeedClient struct {
	base    *BaseClient
	baseURL string
}

// NewFeedClient creates a client against the feed's base URL.
func NewFeedClient(base *BaseClient, baseURL string) *FeedClient {
	return &FeedClient{base: base, baseURL: baseURL}
}

// FetchAvailabilitySignals drains the feed's pending signal batch.
func (c *FeedClient) FetchAvailabilitySignals(ctx context.Context) ([]AvailabilitySignal, error) {
	var out struct {
		Signals []AvailabilitySignal `json:"signals"`
	}
	if err := c.getJSON(ctx, "/v1/signals/pending", &out); err != nil {
		return nil, err
	}
	return out.Signals, nil
}

// FetchHotWindowForecast returns the current restock-likelihood forecast.
func (c *FeedClient) FetchHotWindowForecast(ctx context.Context) (HotWindowForecast, error) {
	var out HotWindowForecast
	if err := c.getJSON(ctx, "/v1/predictions/hot-window", &out); err != nil {
		return HotWindowForecast{}, err
	}
	return out, nil
}

// TriggerCatalogSync asks the feed to run a catalog ingestion pass and
// returns the number of products it reports as updated.
func (c *FeedClient) TriggerCatalogSync(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/catalog/sync", nil)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build catalog sync request", err)
	}
	resp, err := c.base.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, types.NewAppError(types.ErrCodeUpstreamPartner,
			fmt.Sprintf("catalog sync rejected with status %d", resp.StatusCode), nil)
	}
	var out struct {
		ProductsUpdated int `json:"products_updated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, types.NewAppError(types.ErrCodeUpstreamPartner, "failed to decode catalog sync response", err)
	}
	return out.ProductsUpdated, nil
}

func (c *FeedClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build feed request", err)
	}
	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(types.ErrCodeUpstreamPartner,
			fmt.Sprintf("feed returned status %d for %s", resp.StatusCode, path), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamPartner,
			fmt.Sprintf("failed to decode feed response for %s", path), err)
	}
	return nil
}
