package external

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockwatch/internal/types"
)

func TestFetchAvailabilitySignals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/signals/pending" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"signals":[
			{"user_id":"user_1","product_id":"prod_1","retailer_id":"ret_1","type":"restock",
			 "data":{"product_name":"GPU X","retailer_name":"MegaMart","product_url":"https://m.example.com/x","popularity":75}}
		]}`)
	}))
	defer srv.Close()

	feed := NewFeedClient(newTestClient(testPolicy()), srv.URL)

	signals, err := feed.FetchAvailabilitySignals(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	sig := signals[0]
	if sig.UserID != "user_1" || sig.Type != types.AlertRestock || sig.Data.Popularity != 75 {
		t.Fatalf("unexpected signal %+v", sig)
	}
}

func TestFetchAvailabilitySignals_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	feed := NewFeedClient(newTestClient(testPolicy()), srv.URL)

	_, err := feed.FetchAvailabilitySignals(context.Background())
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if code := appErrCode(t, err); code != types.ErrCodeUpstreamPartner {
		t.Fatalf("expected partner error code, got %s", code)
	}
}

func TestFetchHotWindowForecast(t *testing.T) {
	until := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/predictions/hot-window" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"active":true,"until":%q}`, until.Format(time.RFC3339))
	}))
	defer srv.Close()

	feed := NewFeedClient(newTestClient(testPolicy()), srv.URL)

	forecast, err := feed.FetchHotWindowForecast(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !forecast.Active || !forecast.Until.Equal(until) {
		t.Fatalf("unexpected forecast %+v", forecast)
	}
}

func TestTriggerCatalogSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/catalog/sync" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"products_updated":17}`)
	}))
	defer srv.Close()

	feed := NewFeedClient(newTestClient(testPolicy()), srv.URL)

	updated, err := feed.TriggerCatalogSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != 17 {
		t.Fatalf("expected 17 products updated, got %d", updated)
	}
}

func TestTriggerCatalogSync_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	feed := NewFeedClient(newTestClient(testPolicy()), srv.URL)

	if _, err := feed.TriggerCatalogSync(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
