package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stockwatch/internal/core"
	"stockwatch/internal/types"
)

// HealthService is the monitor contract the health handler needs.
type HealthService interface {
	CheckWatchHealth(ctx context.Context, watchID string) (*types.WatchHealth, error)
	CheckUserWatchesHealth(ctx context.Context, userID string) ([]*types.WatchHealth, error)
	CheckWatchPackHealth(ctx context.Context, packID string) (*types.PackHealth, error)
	SystemWatchHealth(ctx context.Context) (*types.SystemHealth, error)
}

// HealthHandler serves on-demand watch, pack, and system health checks.
type HealthHandler struct {
	service HealthService
	logger  *slog.Logger
}

// NewHealthHandler creates a health check handler.
func NewHealthHandler(svc HealthService, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the health endpoints onto the router group.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/watches/{watchID}", h.HandleWatchHealth)
	r.Get("/users/{userID}/watches", h.HandleUserWatchesHealth)
	r.Get("/packs/{packID}", h.HandlePackHealth)
	r.Get("/system", h.HandleSystemHealth)
}

// HandleWatchHealth handles GET /v1/health/watches/{watchID}.
func (h *HealthHandler) HandleWatchHealth(w http.ResponseWriter, r *http.Request) {
	watchID := chi.URLParam(r, "watchID")

	health, err := h.service.CheckWatchHealth(r.Context(), watchID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if health == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundWatch,
			fmt.Sprintf("watch %s not found", watchID), nil))
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: health})
}

// HandleUserWatchesHealth handles GET /v1/health/users/{userID}/watches.
func (h *HealthHandler) HandleUserWatchesHealth(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	results, err := h.service.CheckUserWatchesHealth(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: results})
}

// HandlePackHealth handles GET /v1/health/packs/{packID}.
func (h *HealthHandler) HandlePackHealth(w http.ResponseWriter, r *http.Request) {
	packID := chi.URLParam(r, "packID")

	health, err := h.service.CheckWatchPackHealth(r.Context(), packID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if health == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundPack,
			fmt.Sprintf("watch pack %s not found", packID), nil))
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: health})
}

// HandleSystemHealth handles GET /v1/health/system.
func (h *HealthHandler) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.service.SystemWatchHealth(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: health})
}
