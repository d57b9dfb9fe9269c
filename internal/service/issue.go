package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lintel.app/tracker/common/id"
	"lintel.app/tracker/common/logger"
	"lintel.app/tracker/internal/issue"
	"lintel.app/tracker/internal/queue"
	"lintel.app/tracker/internal/store"
)

type CreateIssueParams struct {
	ProjectKey   string
	ComponentKey string
	RuleKey      string

	Status        *string
	Severity      *issue.Severity
	Message       *string
	Line          *int
	Gap           *float64
	EffortMinutes *int64
	Tags          []string
	CodeVariants  []string
}

// FieldUpdates lists the fields one mutation request wants to touch.
// A nil field is left alone; every non-nil field goes through the record's
// validated setter and is written to the change ledger.
type FieldUpdates struct {
	Status        *string
	Severity      *issue.Severity
	Message       *string
	Line          *int
	Gap           *float64
	EffortMinutes *int64
	Tags          []string
	CodeVariants  []string

	IsOnChangedLine                 *bool
	IsNewCodeReferenceIssue         *bool
	IsNoLongerNewCodeReferenceIssue *bool
	QuickFixAvailable               *bool

	AnticipatedTransitionUUID *string
	CloseDate                 *time.Time
}

type IssueService interface {
	Create(ctx context.Context, params CreateIssueParams) (*issue.Issue, error)
	Get(ctx context.Context, key string) (*issue.Issue, error)
	ListByProject(ctx context.Context, projectKey string) ([]*issue.Issue, error)
	ApplyChanges(ctx context.Context, key string, changeCtx issue.ChangeContext, updates FieldUpdates) (*issue.Issue, error)
	AddComment(ctx context.Context, key string, userUUID *string, markdownText string) (*issue.Issue, error)
	Delete(ctx context.Context, key string) error
}

type issueService struct {
	issues store.IssueStore
	events queue.Producer
}

func NewIssueService(issues store.IssueStore, events queue.Producer) IssueService {
	return &issueService{
		issues: issues,
		events: events,
	}
}

func (s *issueService) Create(ctx context.Context, params CreateIssueParams) (*issue.Issue, error) {
	record := issue.New()
	record.SetKey(id.NewKey())
	record.SetProjectKey(params.ProjectKey)
	record.SetComponentKey(params.ComponentKey)
	record.SetRuleKey(params.RuleKey)

	if err := record.SetStatus(params.Status); err != nil {
		return nil, err
	}
	if err := record.SetSeverity(params.Severity); err != nil {
		return nil, err
	}
	record.SetMessage(params.Message)
	if err := record.SetLine(params.Line); err != nil {
		return nil, err
	}
	if err := record.SetGap(params.Gap); err != nil {
		return nil, err
	}
	if params.EffortMinutes != nil {
		effort := time.Duration(*params.EffortMinutes) * time.Minute
		record.SetEffort(&effort)
	}
	record.SetTags(params.Tags)
	record.SetCodeVariants(params.CodeVariants)

	now := time.Now()
	record.SetCreationDate(&now)
	record.SetUpdateDate(&now)

	if err := s.issues.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IssueKey:   logger.Ptr(record.Key()),
		ProjectKey: logger.Ptr(record.ProjectKey()),
	})
	slog.InfoContext(ctx, "issue created", "rule_key", record.RuleKey())

	return record, nil
}

func (s *issueService) Get(ctx context.Context, key string) (*issue.Issue, error) {
	return s.issues.GetByKey(ctx, key)
}

func (s *issueService) ListByProject(ctx context.Context, projectKey string) ([]*issue.Issue, error) {
	return s.issues.ListByProject(ctx, projectKey)
}

// ApplyChanges loads the record, runs every requested field through its
// validated setter, records the edits as one change in the ledger, and
// persists. A validation failure aborts before persistence, so the stored
// record is never partially updated.
func (s *issueService) ApplyChanges(ctx context.Context, key string, changeCtx issue.ChangeContext, updates FieldUpdates) (*issue.Issue, error) {
	record, err := s.issues.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IssueKey:      logger.Ptr(key),
		ProjectKey:    logger.Ptr(record.ProjectKey()),
		ExternalUser:  changeCtx.ExternalUser,
		WebhookSource: changeCtx.WebhookSource,
	})

	touched, err := applyUpdates(record, changeCtx, updates)
	if err != nil {
		return nil, err
	}
	if len(touched) == 0 {
		slog.DebugContext(ctx, "no field changes to apply")
		return record, nil
	}

	date := changeCtx.Date
	if date.IsZero() {
		date = time.Now()
	}
	record.SetUpdateDate(&date)

	if err := s.issues.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting issue changes: %w", err)
	}

	slog.InfoContext(ctx, "issue changed", "fields", touched)

	if s.events != nil {
		msg := queue.ChangeMessage{
			IssueKey:      record.Key(),
			ProjectKey:    record.ProjectKey(),
			Fields:        touched,
			ExternalUser:  changeCtx.ExternalUser,
			WebhookSource: changeCtx.WebhookSource,
		}
		if err := s.events.Publish(ctx, msg); err != nil {
			// The change is already durable; publication is at-most-once.
			slog.WarnContext(ctx, "failed to publish issue change", "error", err)
		}
	}

	return record, nil
}

func applyUpdates(record *issue.Issue, changeCtx issue.ChangeContext, updates FieldUpdates) ([]string, error) {
	var touched []string
	change := func(field string, oldValue, newValue any) {
		record.SetFieldChange(changeCtx, field, oldValue, newValue)
		touched = append(touched, field)
	}

	if updates.Status != nil && *updates.Status != record.Status() {
		old := record.Status()
		if err := record.SetStatus(updates.Status); err != nil {
			return nil, err
		}
		change("status", nullableAny(old != "", old), *updates.Status)
	}

	if updates.Severity != nil && (record.Severity() == nil || *record.Severity() != *updates.Severity) {
		old := record.Severity()
		if err := record.SetSeverity(updates.Severity); err != nil {
			return nil, err
		}
		change("severity", severityAny(old), string(*updates.Severity))
	}

	if updates.Message != nil && (record.Message() == nil || *record.Message() != *updates.Message) {
		old := record.Message()
		record.SetMessage(updates.Message)
		change("message", strAny(old), *record.Message())
	}

	if updates.Line != nil && (record.Line() == nil || *record.Line() != *updates.Line) {
		old := record.Line()
		if err := record.SetLine(updates.Line); err != nil {
			return nil, err
		}
		change("line", intAny(old), *updates.Line)
	}

	if updates.Gap != nil && (record.Gap() == nil || *record.Gap() != *updates.Gap) {
		old := record.Gap()
		if err := record.SetGap(updates.Gap); err != nil {
			return nil, err
		}
		change("gap", floatAny(old), *updates.Gap)
	}

	if updates.EffortMinutes != nil {
		old := record.EffortInMinutes()
		if old == nil || *old != *updates.EffortMinutes {
			effort := time.Duration(*updates.EffortMinutes) * time.Minute
			record.SetEffort(&effort)
			change("effort", int64Any(old), *updates.EffortMinutes)
		}
	}

	if updates.Tags != nil {
		old := record.Tags()
		record.SetTags(updates.Tags)
		change("tags", joinOrNil(old), joinOrNil(record.Tags()))
	}

	if updates.CodeVariants != nil {
		old := record.CodeVariants()
		record.SetCodeVariants(updates.CodeVariants)
		change("code_variants", joinOrNil(old), joinOrNil(record.CodeVariants()))
	}

	if updates.IsOnChangedLine != nil && *updates.IsOnChangedLine != record.IsOnChangedLine() {
		old := record.IsOnChangedLine()
		record.SetIsOnChangedLine(*updates.IsOnChangedLine)
		change("is_on_changed_line", old, *updates.IsOnChangedLine)
	}
	if updates.IsNewCodeReferenceIssue != nil && *updates.IsNewCodeReferenceIssue != record.IsNewCodeReferenceIssue() {
		old := record.IsNewCodeReferenceIssue()
		record.SetIsNewCodeReferenceIssue(*updates.IsNewCodeReferenceIssue)
		change("is_new_code_reference_issue", old, *updates.IsNewCodeReferenceIssue)
	}
	if updates.IsNoLongerNewCodeReferenceIssue != nil && *updates.IsNoLongerNewCodeReferenceIssue != record.IsNoLongerNewCodeReferenceIssue() {
		old := record.IsNoLongerNewCodeReferenceIssue()
		record.SetIsNoLongerNewCodeReferenceIssue(*updates.IsNoLongerNewCodeReferenceIssue)
		change("is_no_longer_new_code_reference_issue", old, *updates.IsNoLongerNewCodeReferenceIssue)
	}
	if updates.QuickFixAvailable != nil && *updates.QuickFixAvailable != record.IsQuickFixAvailable() {
		old := record.IsQuickFixAvailable()
		record.SetQuickFixAvailable(*updates.QuickFixAvailable)
		change("is_quick_fix_available", old, *updates.QuickFixAvailable)
	}

	if updates.AnticipatedTransitionUUID != nil {
		old := record.AnticipatedTransitionUUID()
		if old == nil || *old != *updates.AnticipatedTransitionUUID {
			record.SetAnticipatedTransitionUUID(updates.AnticipatedTransitionUUID)
			change("anticipated_transition_uuid", strAny(old), *updates.AnticipatedTransitionUUID)
		}
	}

	if updates.CloseDate != nil {
		old := record.CloseDate()
		if old == nil || !old.Equal(*updates.CloseDate) {
			record.SetCloseDate(updates.CloseDate)
			change("close_date", dateAny(old), updates.CloseDate.Format(time.RFC3339))
		}
	}

	return touched, nil
}

func (s *issueService) AddComment(ctx context.Context, key string, userUUID *string, markdownText string) (*issue.Issue, error) {
	record, err := s.issues.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record.AddComment(issue.Comment{
		Key:          id.NewKey(),
		IssueKey:     record.Key(),
		UserUUID:     userUUID,
		MarkdownText: markdownText,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	record.SetUpdateDate(&now)

	if err := s.issues.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting comment: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IssueKey:   logger.Ptr(key),
		ProjectKey: logger.Ptr(record.ProjectKey()),
	})
	slog.InfoContext(ctx, "comment added", "comments", len(record.Comments()))

	return record, nil
}

func (s *issueService) Delete(ctx context.Context, key string) error {
	return s.issues.Delete(ctx, key)
}

func nullableAny(present bool, v any) any {
	if !present {
		return nil
	}
	return v
}

func severityAny(s *issue.Severity) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func strAny(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func intAny(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func int64Any(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func floatAny(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func dateAny(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func joinOrNil(s []string) any {
	if len(s) == 0 {
		return nil
	}
	out := s[0]
	for _, v := range s[1:] {
		out += " " + v
	}
	return out
}
