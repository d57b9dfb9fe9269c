package issue

import "time"

// ChangeContext carries the authorship and provenance metadata stamped onto a
// diff record when a field change is recorded. It is built by the caller
// (analysis pipeline, webhook ingress, user action) and consumed here as-is.
type ChangeContext struct {
	UserUUID      *string
	Date          time.Time
	ExternalUser  *string
	WebhookSource *string
}
