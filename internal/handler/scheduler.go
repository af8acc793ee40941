package handler

import (
	"net/http"

	"pawmeds/internal/httputil"
	"pawmeds/internal/scheduler"
)

// StatusProvider reports the scheduler's current state.
type StatusProvider interface {
	Status() scheduler.Status
}

type SchedulerHandler struct {
	sched StatusProvider
}

func NewSchedulerHandler(sched StatusProvider) *SchedulerHandler {
	return &SchedulerHandler{sched: sched}
}

// Status handles GET /scheduler/status
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil {
		httputil.WriteJSON(w, http.StatusOK, scheduler.Status{Running: false, Jobs: []string{}})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.sched.Status())
}
