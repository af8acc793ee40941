package handler

import (
	"context"
	"log"
	"net/http"

	"pawmeds/internal/cache"
	"pawmeds/internal/httputil"
	"pawmeds/internal/model"
	"pawmeds/internal/transport/http/middleware"
)

// SummaryProvider computes the per-user notification summary.
type SummaryProvider interface {
	NotificationSummary(ctx context.Context, userID int64) (*model.NotificationSummary, error)
}

type NotificationHandler struct {
	summaries SummaryProvider
	cache     cache.SummaryCache
}

func NewNotificationHandler(summaries SummaryProvider, summaryCache cache.SummaryCache) *NotificationHandler {
	return &NotificationHandler{
		summaries: summaries,
		cache:     summaryCache,
	}
}

// Summary handles GET /notifications/summary
// Returns upcoming/overdue counts and the next pending notification for the
// authenticated caregiver. Read-through cached, cache failures fall back to
// a direct computation.
func (h *NotificationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if h.cache != nil {
		cached, err := h.cache.Get(r.Context(), userID)
		if err != nil {
			log.Printf("[WARN] Summary cache read: user=%d err=%v", userID, err)
		} else if cached != nil {
			httputil.WriteJSON(w, http.StatusOK, cached)
			return
		}
	}

	summary, err := h.summaries.NotificationSummary(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] Notification summary: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to compute notification summary")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), userID, summary); err != nil {
			log.Printf("[WARN] Summary cache write: user=%d err=%v", userID, err)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}
