package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stockwatch/internal/types"
)

func decodeErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var resp APIErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestError_AppErrorStatusMapping(t *testing.T) {
	cases := []struct {
		code   types.ErrorCode
		status int
	}{
		{types.ErrCodeValidationFailed, http.StatusBadRequest},
		{types.ErrCodeRateLimit, http.StatusTooManyRequests},
		{types.ErrCodeNotFoundWatch, http.StatusNotFound},
		{types.ErrCodeDeliveryFailed, http.StatusBadGateway},
		{types.ErrCodeUpstreamQueue, http.StatusBadGateway},
		{types.ErrCodeInternalDB, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		Error(rr, req, types.NewAppError(tc.code, "test message", nil))

		if rr.Code != tc.status {
			t.Errorf("%s: expected status %d, got %d", tc.code, tc.status, rr.Code)
		}
		resp := decodeErrorResponse(t, rr)
		if resp.Error.Code != string(tc.code) {
			t.Errorf("%s: unexpected code %q", tc.code, resp.Error.Code)
		}
	}
}

func TestError_WrappedAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	wrapped := fmt.Errorf("handler: %w",
		types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil))

	Error(rr, req, wrapped)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from wrapped AppError, got %d", rr.Code)
	}
}

func TestError_OpaqueInternalError(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rr, req, errors.New("pq: connection reset"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	resp := decodeErrorResponse(t, rr)
	if resp.Error.Message != "an unexpected error occurred" {
		t.Fatalf("internal detail must not leak, got %q", resp.Error.Message)
	}
}

func TestError_CarriesRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req_42"))

	Error(rr, req, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil))

	resp := decodeErrorResponse(t, rr)
	if resp.Error.RequestID != "req_42" {
		t.Fatalf("expected request id in error body, got %q", resp.Error.RequestID)
	}
}

func TestDecodeJSON_Valid(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"GPU X"}`))

	if err := DecodeJSON(rr, req, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Name != "GPU X" {
		t.Fatalf("unexpected decode result %+v", dst)
	}
}

func TestDecodeJSON_Failures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed", `{not json`},
		{"unknown field", `{"name":"x","bogus":1}`},
		{"wrong type", `{"name":42}`},
		{"empty body", ``},
		{"trailing value", `{"name":"x"}{"name":"y"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dst struct {
				Name string `json:"name"`
			}
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))

			err := DecodeJSON(rr, req, &dst)
			if err == nil {
				t.Fatal("expected decode error")
			}
			var appErr *types.AppError
			if !errors.As(err, &appErr) || appErr.Code != errCodeInvalidJSON {
				t.Fatalf("expected invalid json AppError, got %v", err)
			}
			if appErr.HTTPStatus() != http.StatusBadRequest {
				t.Fatalf("decode failures must map to 400, got %d", appErr.HTTPStatus())
			}
		})
	}
}

func TestDecodeJSON_FieldDetailOnTypeError(t *testing.T) {
	var dst struct {
		Count int `json:"count"`
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"count":"twelve"}`))

	err := DecodeJSON(rr, req, &dst)
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Details["field"] != "count" {
		t.Fatalf("expected offending field in details, got %v", appErr.Details)
	}
}
