package api

import (
	"context"
	"net/http"
	"time"

	"github.com/unihub/dispatch/internal/storage"
)

// HealthzHandler reports process liveness. It always returns 200.
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler reports readiness by pinging the database. An
// unavailable database yields 503 with a Retry-After hint.
func ReadyzHandler(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			w.Header().Set("Retry-After", "30")
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
