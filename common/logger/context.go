package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context, enabling zero-touch logging where business context (issue key,
// project, authorship) is included in every log statement.
type LogFields struct {
	IssueKey      *string // issue record key
	ProjectKey    *string // owning project key
	ExternalUser  *string // authorship: external user on the change context
	WebhookSource *string // authorship: webhook source on the change context
	Component     string  // component name, e.g. "tracker.service.issue"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.IssueKey != nil {
		result.IssueKey = next.IssueKey
	}
	if next.ProjectKey != nil {
		result.ProjectKey = next.ProjectKey
	}
	if next.ExternalUser != nil {
		result.ExternalUser = next.ExternalUser
	}
	if next.WebhookSource != nil {
		result.WebhookSource = next.WebhookSource
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline.
func Ptr[T any](v T) *T {
	return &v
}
