package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/unihub/dispatch/internal/auth"
	"github.com/unihub/dispatch/internal/events"
	"github.com/unihub/dispatch/internal/storage"
)

// RouterDeps carries everything the router wires together.
type RouterDeps struct {
	DB              *storage.DB
	Events          events.Store
	RSVP            RSVPToggler
	Sweeper         SweepRunner
	Sessions        *auth.SessionValidator
	OperatorKeyHash string
}

// NewRouter creates a chi.Mux with all routes, middleware, and handlers
// configured.
func NewRouter(deps RouterDeps, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoverMiddleware(log))

	// Health endpoints (no auth required)
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public counter read
		r.Get("/events/{eventID}/rsvp", GetRSVPCountHandler(deps.Events))

		// Session-authenticated toggle
		r.Group(func(r chi.Router) {
			r.Use(auth.SessionAuth(deps.Sessions))
			r.Put("/events/{eventID}/rsvp", ToggleRSVPHandler(deps.RSVP))
		})

		// Operator-only manual sweep triggers
		r.Group(func(r chi.Router) {
			r.Use(auth.OperatorAuth(deps.OperatorKeyHash))
			r.Post("/sweeps/reminder", TriggerReminderSweepHandler(deps.Sweeper))
			r.Post("/sweeps/feedback", TriggerFeedbackSweepHandler(deps.Sweeper))
		})
	})

	return r
}
