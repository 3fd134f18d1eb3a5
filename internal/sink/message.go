package sink

import (
	"fmt"
	"net/url"

	"github.com/unihub/dispatch/internal/job"
)

// eventDateFormat is the human-readable date used in message bodies.
const eventDateFormat = "Mon, 02 Jan 2006"

// Compose builds the plain-text message for a job. The sink owns final
// HTML rendering; this text is the template input it receives.
func Compose(j *job.Job, feedbackBaseURL string) string {
	e := j.Payload.Event
	name := j.Payload.Recipient.Name
	date := e.Date.Format(eventDateFormat)

	switch j.Kind {
	case job.KindReminder:
		return fmt.Sprintf(
			"Hi %s,\n\nJust a quick reminder that %q is happening in 2 days - %s at %s, starting time is (%s).\n\n"+
				"Event Details:\n\nHosted by %s (%s).\n\nWe're excited to see you there!\n\nBest,\nThe UniHub Team",
			name, e.Title, date, e.Location, e.Time, e.OrganizerName, e.OrganizerEmail)

	case job.KindFeedback:
		return fmt.Sprintf(
			"Hi %s,\n\nThanks for attending %q on %s at %s.\n\nHosted by: %s (%s)\n\n"+
				"We'd really appreciate it if you could take a moment to share your feedback %s .\n\nThanks for your time!",
			name, e.Title, date, e.Location, e.OrganizerName, e.OrganizerEmail,
			feedbackLink(feedbackBaseURL, j.Payload.EventID, e.Title))

	default:
		return fmt.Sprintf(
			"Hi %s,\n\nYou've shown interest in %q happening on %s at %s.\nHosted by %s (%s).\n\n"+
				"Stay tuned for updates, and feel free to reach out if you have any questions! (%s)\n\nCheers,\nThe UniHub Team",
			name, e.Title, date, e.Location, e.OrganizerName, e.OrganizerEmail, e.OrganizerEmail)
	}
}

// feedbackLink builds the feedback-submission URL embedding the event
// id and name as query parameters.
func feedbackLink(baseURL, eventID, eventName string) string {
	q := url.Values{}
	q.Set("eventId", eventID)
	q.Set("eventName", eventName)
	return baseURL + "?" + q.Encode()
}
