package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pawmeds/internal/cache"
	"pawmeds/internal/httputil"
	"pawmeds/internal/model"
	"pawmeds/internal/queue"
	"pawmeds/internal/repository"
	"pawmeds/internal/transport/http/middleware"
)

// EventPublisher publishes household notification events after a write.
type EventPublisher interface {
	PublishDoseRecorded(ctx context.Context, event queue.NotificationEvent) (string, error)
	PublishCosignRequested(ctx context.Context, event queue.NotificationEvent) (string, error)
}

type AdministrationHandler struct {
	regimens        repository.RegimenRepository
	administrations repository.AdministrationRepository
	households      repository.HouseholdRepository
	publisher       EventPublisher
	cache           cache.SummaryCache
}

func NewAdministrationHandler(
	regimens repository.RegimenRepository,
	administrations repository.AdministrationRepository,
	households repository.HouseholdRepository,
	publisher EventPublisher,
	summaryCache cache.SummaryCache,
) *AdministrationHandler {
	return &AdministrationHandler{
		regimens:        regimens,
		administrations: administrations,
		households:      households,
		publisher:       publisher,
		cache:           summaryCache,
	}
}

// Record handles POST /regimens/{regimenID}/administrations
// Persists the administration, announces it to the household via the event
// stream, and invalidates the caregivers' summary caches.
func (h *AdministrationHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	regimenID, err := strconv.ParseInt(chi.URLParam(r, "regimenID"), 10, 64)
	if err != nil || regimenID <= 0 {
		httputil.WriteBadRequest(w, "Invalid regimen ID")
		return
	}

	var req model.RecordAdministrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	schedule, err := h.regimens.GetScheduleInfo(r.Context(), regimenID)
	if err != nil {
		log.Printf("[ERROR] Record administration: regimen=%d err=%v", regimenID, err)
		httputil.WriteInternalError(w, "Failed to load regimen")
		return
	}
	if schedule == nil {
		httputil.WriteNotFound(w, "Regimen not found")
		return
	}

	admin := &model.Administration{
		RegimenID:    regimenID,
		AnimalID:     schedule.AnimalID,
		RecordedBy:   userID,
		ScheduledFor: req.ScheduledFor,
		Notes:        req.Notes,
		CosignerID:   req.CosignerID,
	}
	if err := h.administrations.Create(r.Context(), admin); err != nil {
		log.Printf("[ERROR] Record administration: regimen=%d user=%d err=%v", regimenID, userID, err)
		httputil.WriteInternalError(w, "Failed to record administration")
		return
	}

	recordedByName, err := h.households.MemberDisplayName(r.Context(), userID)
	if err != nil {
		log.Printf("[WARN] Record administration: resolve name user=%d err=%v", userID, err)
	}

	// The write succeeded; event and cache failures are logged, not
	// surfaced. The ledger and next sweep keep the household consistent.
	event := queue.NewDoseRecordedEvent(schedule.HouseholdID, regimenID, schedule.AnimalID,
		admin.ID, userID, schedule.AnimalName, schedule.MedicationName, recordedByName)
	if _, err := h.publisher.PublishDoseRecorded(r.Context(), event); err != nil {
		log.Printf("[ERROR] Publish dose recorded: administration=%d err=%v", admin.ID, err)
	}

	if req.CosignerID != nil && *req.CosignerID != 0 {
		cosign := queue.NewCosignRequestedEvent(schedule.HouseholdID, regimenID, schedule.AnimalID,
			admin.ID, userID, *req.CosignerID, schedule.AnimalName, schedule.MedicationName, recordedByName)
		if _, err := h.publisher.PublishCosignRequested(r.Context(), cosign); err != nil {
			log.Printf("[ERROR] Publish cosign request: administration=%d err=%v", admin.ID, err)
		}
	}

	h.invalidateSummaries(r.Context(), schedule.HouseholdID)

	httputil.WriteJSON(w, http.StatusCreated, admin)
}

// invalidateSummaries drops every household caregiver's cached summary so
// the recorded dose is reflected immediately.
func (h *AdministrationHandler) invalidateSummaries(ctx context.Context, householdID int64) {
	if h.cache == nil {
		return
	}
	caregivers, err := h.households.ListCaregiverIDs(ctx, householdID)
	if err != nil {
		log.Printf("[WARN] Invalidate summaries: household=%d err=%v", householdID, err)
		return
	}
	for _, id := range caregivers {
		if err := h.cache.Invalidate(ctx, id); err != nil {
			log.Printf("[WARN] Invalidate summary: user=%d err=%v", id, err)
		}
	}
}
