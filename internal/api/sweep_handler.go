package api

import (
	"context"
	"net/http"

	"github.com/unihub/dispatch/internal/sweep"
)

// SweepRunner runs the notification sweeps on demand.
type SweepRunner interface {
	RunReminderSweep(ctx context.Context) (sweep.Summary, error)
	RunFeedbackSweep(ctx context.Context) (sweep.Summary, error)
}

type sweepResponse struct {
	Events   int `json:"events"`
	Enqueued int `json:"enqueued"`
	Skipped  int `json:"skipped"`
}

// TriggerReminderSweepHandler handles POST /api/v1/sweeps/reminder.
// Manual triggers are safe to repeat: sweep job identities are
// day-bucketed, so a re-run replaces rather than duplicates.
func TriggerReminderSweepHandler(runner SweepRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := runner.RunReminderSweep(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "reminder sweep failed")
			return
		}
		respondJSON(w, http.StatusOK, sweepResponse(sum))
	}
}

// TriggerFeedbackSweepHandler handles POST /api/v1/sweeps/feedback.
func TriggerFeedbackSweepHandler(runner SweepRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := runner.RunFeedbackSweep(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "feedback sweep failed")
			return
		}
		respondJSON(w, http.StatusOK, sweepResponse(sum))
	}
}
