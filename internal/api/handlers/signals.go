// Package handlers contains the HTTP handler implementations for the
// StockWatch alerting API: signal ingestion, watch and pack health checks,
// and scheduler job status.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"stockwatch/internal/alerts"
	"stockwatch/internal/core"
	"stockwatch/internal/types"
)

// SignalService is the orchestration contract the signal handler needs.
// Defined locally so tests inject a lightweight fake.
type SignalService interface {
	GenerateAlert(ctx context.Context, input alerts.GenerateAlertInput) (alerts.GenerateAlertResult, error)
	ListUserAlerts(ctx context.Context, userID string, limit int) ([]*types.Alert, error)
}

// SignalHandler ingests monitoring signals from upstream scanners and
// partner integrations.
type SignalHandler struct {
	service SignalService
	logger  *slog.Logger
}

// NewSignalHandler creates a signal ingestion handler.
func NewSignalHandler(svc SignalService, logger *slog.Logger) *SignalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the signal endpoints onto the router group.
func (h *SignalHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleIngest)
	r.Get("/users/{userID}/alerts", h.HandleListUserAlerts)
}

// HandleIngest handles POST /v1/signals. The response status mirrors the
// pipeline verdict: 201 for a processed or scheduled alert, 200 for a
// dedup fold, and the typed error status otherwise.
func (h *SignalHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var input alerts.GenerateAlertInput
	if err := core.DecodeJSON(w, r, &input); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.service.GenerateAlert(r.Context(), input)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome == types.OutcomeDeduplicated {
		status = http.StatusOK
	}
	core.JSON(w, r, status, core.APIResponse{Data: result})
}

// HandleListUserAlerts handles GET /v1/signals/users/{userID}/alerts, the
// alert history for one recipient.
func (h *SignalHandler) HandleListUserAlerts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	alertList, err := h.service.ListUserAlerts(r.Context(), userID, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if alertList == nil {
		alertList = []*types.Alert{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: alertList})
}
