package core

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockwatch/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var fromCtx string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = types.GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if fromCtx == "" {
		t.Fatal("expected a generated request id in context")
	}
	if got := rr.Header().Get("X-Request-Id"); got != fromCtx {
		t.Fatalf("response header %q must match context id %q", got, fromCtx)
	}
}

func TestRequestIDMiddleware_HonorsInbound(t *testing.T) {
	var fromCtx string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = types.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req_upstream")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if fromCtx != "req_upstream" {
		t.Fatalf("inbound request id must win, got %q", fromCtx)
	}
	if got := rr.Header().Get("X-Request-Id"); got != "req_upstream" {
		t.Fatalf("inbound id must echo in the response, got %q", got)
	}
}

func TestRecoverer_WritesStandardizedError(t *testing.T) {
	s := &Server{Logger: discardLogger()}
	handler := s.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req_42"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp APIErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Fatalf("unexpected error code %q", resp.Error.Code)
	}
	if resp.Error.RequestID != "req_42" {
		t.Fatalf("expected request id to carry through, got %q", resp.Error.RequestID)
	}
}

func TestResponseCapture(t *testing.T) {
	rr := httptest.NewRecorder()
	rc := &responseCapture{ResponseWriter: rr, statusCode: http.StatusOK}

	rc.WriteHeader(http.StatusTeapot)
	rc.WriteHeader(http.StatusOK) // second write must not overwrite the capture

	if rc.statusCode != http.StatusTeapot {
		t.Fatalf("expected captured status 418, got %d", rc.statusCode)
	}
}

func TestResponseCapture_ImplicitOK(t *testing.T) {
	rr := httptest.NewRecorder()
	rc := &responseCapture{ResponseWriter: rr}

	if _, err := rc.Write([]byte("ok")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.statusCode != http.StatusOK {
		t.Fatalf("a bare Write must capture 200, got %d", rc.statusCode)
	}
}
