package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pawmeds/internal/handler"
	"pawmeds/internal/httputil"
	authmw "pawmeds/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	SubscriptionHandler   *handler.SubscriptionHandler
	NotificationHandler   *handler.NotificationHandler
	AdministrationHandler *handler.AdministrationHandler
	SchedulerHandler      *handler.SchedulerHandler
	JWTSecret             string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public: browsers need the VAPID key before they can authenticate a
	// subscription call.
	r.Get("/push/public-key", cfg.SubscriptionHandler.PublicKey)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/notifications/summary", cfg.NotificationHandler.Summary)

		r.Post("/push/subscriptions", cfg.SubscriptionHandler.Register)
		r.Delete("/push/subscriptions", cfg.SubscriptionHandler.Remove)

		r.Post("/regimens/{regimenID}/administrations", cfg.AdministrationHandler.Record)

		r.Get("/scheduler/status", cfg.SchedulerHandler.Status)
	})

	return r
}
