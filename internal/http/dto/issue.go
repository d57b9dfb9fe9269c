package dto

import (
	"time"

	"lintel.app/tracker/internal/issue"
)

type CreateIssueRequest struct {
	ProjectKey   string `json:"project_key" binding:"required,min=1,max=400"`
	ComponentKey string `json:"component_key" binding:"omitempty,max=400"`
	RuleKey      string `json:"rule_key" binding:"omitempty,max=200"`

	Status        *string  `json:"status,omitempty"`
	Severity      *string  `json:"severity,omitempty"`
	Message       *string  `json:"message,omitempty"`
	Line          *int     `json:"line,omitempty"`
	Gap           *float64 `json:"gap,omitempty"`
	EffortMinutes *int64   `json:"effort_minutes,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CodeVariants  []string `json:"code_variants,omitempty"`
}

// UpdateIssueRequest carries a partial update; absent fields are left alone.
type UpdateIssueRequest struct {
	Status        *string  `json:"status,omitempty"`
	Severity      *string  `json:"severity,omitempty"`
	Message       *string  `json:"message,omitempty"`
	Line          *int     `json:"line,omitempty"`
	Gap           *float64 `json:"gap,omitempty"`
	EffortMinutes *int64   `json:"effort_minutes,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CodeVariants  []string `json:"code_variants,omitempty"`

	IsOnChangedLine                 *bool `json:"is_on_changed_line,omitempty"`
	IsNewCodeReferenceIssue         *bool `json:"is_new_code_reference_issue,omitempty"`
	IsNoLongerNewCodeReferenceIssue *bool `json:"is_no_longer_new_code_reference_issue,omitempty"`
	QuickFixAvailable               *bool `json:"quick_fix_available,omitempty"`

	AnticipatedTransitionUUID *string    `json:"anticipated_transition_uuid,omitempty"`
	CloseDate                 *time.Time `json:"close_date,omitempty"`
}

type AddCommentRequest struct {
	UserUUID     *string `json:"user_uuid,omitempty" binding:"omitempty,max=40"`
	MarkdownText string  `json:"markdown_text" binding:"required,min=1"`
}

type IssueResponse struct {
	Key          string `json:"key"`
	ProjectKey   string `json:"project_key"`
	ComponentKey string `json:"component_key,omitempty"`
	RuleKey      string `json:"rule_key,omitempty"`

	Status        string   `json:"status,omitempty"`
	Severity      *string  `json:"severity,omitempty"`
	Message       *string  `json:"message,omitempty"`
	Line          *int     `json:"line,omitempty"`
	Gap           *float64 `json:"gap,omitempty"`
	EffortMinutes *int64   `json:"effort_minutes,omitempty"`

	CreationDate *time.Time `json:"creation_date,omitempty"`
	UpdateDate   *time.Time `json:"update_date,omitempty"`
	CloseDate    *time.Time `json:"close_date,omitempty"`
	SelectedAt   *time.Time `json:"selected_at,omitempty"`

	Tags         []string `json:"tags"`
	CodeVariants []string `json:"code_variants"`

	IsOnChangedLine                     bool `json:"is_on_changed_line"`
	IsNewCodeReferenceIssue             bool `json:"is_new_code_reference_issue"`
	IsNoLongerNewCodeReferenceIssue     bool `json:"is_no_longer_new_code_reference_issue"`
	IsQuickFixAvailable                 bool `json:"is_quick_fix_available"`
	ToBeMigratedAsNewCodeReferenceIssue bool `json:"to_be_migrated_as_new_code_reference_issue"`

	AnticipatedTransitionUUID *string `json:"anticipated_transition_uuid,omitempty"`

	Comments []CommentResponse `json:"comments"`
	Changes  []ChangeResponse  `json:"changes"`
}

type CommentResponse struct {
	Key          string    `json:"key"`
	UserUUID     *string   `json:"user_uuid,omitempty"`
	MarkdownText string    `json:"markdown_text"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChangeResponse struct {
	UserUUID      *string             `json:"user_uuid,omitempty"`
	ExternalUser  *string             `json:"external_user,omitempty"`
	WebhookSource *string             `json:"webhook_source,omitempty"`
	CreationDate  time.Time           `json:"creation_date"`
	Diffs         []FieldDiffResponse `json:"diffs"`
}

type FieldDiffResponse struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value,omitempty"`
	NewValue any    `json:"new_value,omitempty"`
}

func ToIssueResponse(record *issue.Issue) *IssueResponse {
	var severity *string
	if s := record.Severity(); s != nil {
		str := string(*s)
		severity = &str
	}

	comments := record.Comments()
	commentResponses := make([]CommentResponse, len(comments))
	for i, c := range comments {
		commentResponses[i] = CommentResponse{
			Key:          c.Key,
			UserUUID:     c.UserUUID,
			MarkdownText: c.MarkdownText,
			CreatedAt:    c.CreatedAt,
		}
	}

	return &IssueResponse{
		Key:          record.Key(),
		ProjectKey:   record.ProjectKey(),
		ComponentKey: record.ComponentKey(),
		RuleKey:      record.RuleKey(),

		Status:        record.Status(),
		Severity:      severity,
		Message:       record.Message(),
		Line:          record.Line(),
		Gap:           record.Gap(),
		EffortMinutes: record.EffortInMinutes(),

		CreationDate: record.CreationDate(),
		UpdateDate:   record.UpdateDate(),
		CloseDate:    record.CloseDate(),
		SelectedAt:   record.SelectedAt(),

		Tags:         record.Tags(),
		CodeVariants: record.CodeVariants(),

		IsOnChangedLine:                     record.IsOnChangedLine(),
		IsNewCodeReferenceIssue:             record.IsNewCodeReferenceIssue(),
		IsNoLongerNewCodeReferenceIssue:     record.IsNoLongerNewCodeReferenceIssue(),
		IsQuickFixAvailable:                 record.IsQuickFixAvailable(),
		ToBeMigratedAsNewCodeReferenceIssue: record.IsToBeMigratedAsNewCodeReferenceIssue(),

		AnticipatedTransitionUUID: record.AnticipatedTransitionUUID(),

		Comments: commentResponses,
		Changes:  ToChangeResponses(record.Changes()),
	}
}

func ToChangeResponses(changes []*issue.FieldDiffs) []ChangeResponse {
	out := make([]ChangeResponse, len(changes))
	for i, change := range changes {
		diffs := make([]FieldDiffResponse, 0, change.Len())
		for _, field := range change.Fields() {
			diff := change.Get(field)
			diffs = append(diffs, FieldDiffResponse{
				Field:    field,
				OldValue: diff.OldValue(),
				NewValue: diff.NewValue(),
			})
		}
		out[i] = ChangeResponse{
			UserUUID:      change.UserUUID(),
			ExternalUser:  change.ExternalUser(),
			WebhookSource: change.WebhookSource(),
			CreationDate:  change.CreationDate(),
			Diffs:         diffs,
		}
	}
	return out
}
