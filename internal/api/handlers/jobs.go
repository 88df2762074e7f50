package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stockwatch/internal/core"
	"stockwatch/internal/scheduler"
)

// JobStatusProvider is the scheduler surface the jobs handler needs.
type JobStatusProvider interface {
	Status() []scheduler.JobStatus
	JobStatusByName(name string) (scheduler.JobStatus, error)
}

// JobsHandler serves scheduler bookkeeping for dashboards and on-call
// debugging. Reads never block a running job.
type JobsHandler struct {
	scheduler JobStatusProvider
	logger    *slog.Logger
}

// NewJobsHandler creates a job status handler.
func NewJobsHandler(sched JobStatusProvider, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{scheduler: sched, logger: logger}
}

// RegisterRoutes mounts the job status endpoints onto the router group.
func (h *JobsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListJobs)
	r.Get("/{name}", h.HandleGetJob)
}

// HandleListJobs handles GET /v1/jobs.
func (h *JobsHandler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.scheduler.Status()})
}

// HandleGetJob handles GET /v1/jobs/{name}.
func (h *JobsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	status, err := h.scheduler.JobStatusByName(chi.URLParam(r, "name"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: status})
}
