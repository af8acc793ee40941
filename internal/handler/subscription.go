package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"pawmeds/internal/httputil"
	"pawmeds/internal/model"
	"pawmeds/internal/repository"
	"pawmeds/internal/transport/http/middleware"
)

type SubscriptionHandler struct {
	subs           repository.PushSubscriptionRepository
	vapidPublicKey string
}

func NewSubscriptionHandler(subs repository.PushSubscriptionRepository, vapidPublicKey string) *SubscriptionHandler {
	return &SubscriptionHandler{
		subs:           subs,
		vapidPublicKey: vapidPublicKey,
	}
}

// PublicKey handles GET /push/public-key
// Returns the VAPID public key browsers need to subscribe. Public route.
func (h *SubscriptionHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidPublicKey == "" {
		httputil.WriteNotFound(w, "Push notifications are not configured")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"public_key": h.vapidPublicKey,
	})
}

// Register handles POST /push/subscriptions
// Stores (or reactivates) a browser push subscription for the user.
func (h *SubscriptionHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.Endpoint = strings.TrimSpace(req.Endpoint)
	if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		httputil.WriteBadRequest(w, "endpoint, p256dh_key and auth_key are required")
		return
	}

	if err := h.subs.Upsert(r.Context(), userID, req); err != nil {
		log.Printf("[ERROR] Register subscription: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to register subscription")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Subscription registered",
	})
}

// Remove handles DELETE /push/subscriptions
// Deletes the subscription for the given endpoint.
func (h *SubscriptionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RemoveSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Endpoint) == "" {
		httputil.WriteBadRequest(w, "endpoint is required")
		return
	}

	if err := h.subs.DeleteByEndpoint(r.Context(), userID, req.Endpoint); err != nil {
		log.Printf("[ERROR] Remove subscription: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to remove subscription")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Subscription removed",
	})
}
