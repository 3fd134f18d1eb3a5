package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub/dispatch/internal/auth"
	"github.com/unihub/dispatch/internal/events"
	"github.com/unihub/dispatch/internal/rsvp"
)

// RSVPToggler flips a user's RSVP on an event.
type RSVPToggler interface {
	Toggle(ctx context.Context, eventID, userID string) (*rsvp.Result, error)
}

// ToggleRSVPHandler handles PUT /api/v1/events/{eventID}/rsvp. The
// acting user comes from the session token, never from the body.
func ToggleRSVPHandler(svc RSVPToggler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")
		if eventID == "" {
			respondError(w, http.StatusBadRequest, "event id required")
			return
		}

		claims := auth.SessionFromContext(r.Context())
		if claims == nil {
			respondError(w, http.StatusUnauthorized, "session required")
			return
		}

		result, err := svc.Toggle(r.Context(), eventID, claims.Subject)
		if err != nil {
			if errors.Is(err, events.ErrEventNotFound) {
				respondError(w, http.StatusNotFound, "event not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "toggle rsvp failed")
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

// GetRSVPCountHandler handles GET /api/v1/events/{eventID}/rsvp and
// returns the event's current RSVP counter.
func GetRSVPCountHandler(store events.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")
		if eventID == "" {
			respondError(w, http.StatusBadRequest, "event id required")
			return
		}

		ev, err := store.GetEvent(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, events.ErrEventNotFound) {
				respondError(w, http.StatusNotFound, "event not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "get event failed")
			return
		}

		respondJSON(w, http.StatusOK, map[string]int{"rsvp_count": ev.RSVPCount})
	}
}
