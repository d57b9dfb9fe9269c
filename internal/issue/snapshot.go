package issue

import "time"

// Snapshot is a flat copy of a record's full state, used by the storage
// layer to bind columns without reaching into the entity. It bypasses the
// validating setters on both directions: a snapshot taken from a record is
// valid by construction, and Restore trusts whatever the store hands back.
type Snapshot struct {
	Key          string
	ProjectKey   string
	ComponentKey string
	RuleKey      string

	Status   string
	Severity *Severity
	Message  *string
	Line     *int
	Gap      *float64
	Effort   *time.Duration

	CreationDate *time.Time
	UpdateDate   *time.Time
	CloseDate    *time.Time
	SelectedAt   *time.Time

	Tags         []string
	CodeVariants []string

	IsOnChangedLine                 bool
	IsNewCodeReferenceIssue         bool
	IsNoLongerNewCodeReferenceIssue bool
	IsQuickFixAvailable             bool

	AnticipatedTransitionUUID *string

	Comments []Comment
	Changes  []*FieldDiffs
}

// Snapshot captures the record's current state. Collections are copied;
// individual changes stay shared (the ledger is append-only).
func (i *Issue) Snapshot() Snapshot {
	return Snapshot{
		Key:          i.key,
		ProjectKey:   i.projectKey,
		ComponentKey: i.componentKey,
		RuleKey:      i.ruleKey,

		Status:   i.status,
		Severity: copyPtr(i.severity),
		Message:  copyPtr(i.message),
		Line:     copyPtr(i.line),
		Gap:      copyPtr(i.gap),
		Effort:   copyPtr(i.effort),

		CreationDate: copyPtr(i.creationDate),
		UpdateDate:   copyPtr(i.updateDate),
		CloseDate:    copyPtr(i.closeDate),
		SelectedAt:   copyPtr(i.selectedAt),

		Tags:         copyStrings(i.tags),
		CodeVariants: copyStrings(i.codeVariants),

		IsOnChangedLine:                 i.onChangedLine,
		IsNewCodeReferenceIssue:         i.newCodeReferenceIssue,
		IsNoLongerNewCodeReferenceIssue: i.noLongerNewCodeReferenceIssue,
		IsQuickFixAvailable:             i.quickFixAvailable,

		AnticipatedTransitionUUID: copyPtr(i.anticipatedTransitionUUID),

		Comments: append([]Comment(nil), i.comments...),
		Changes:  append([]*FieldDiffs(nil), i.changes...),
	}
}

// Restore rebuilds a record from a stored snapshot.
func Restore(s Snapshot) *Issue {
	return &Issue{
		key:          s.Key,
		projectKey:   s.ProjectKey,
		componentKey: s.ComponentKey,
		ruleKey:      s.RuleKey,

		status:   s.Status,
		severity: copyPtr(s.Severity),
		message:  copyPtr(s.Message),
		line:     copyPtr(s.Line),
		gap:      copyPtr(s.Gap),
		effort:   copyPtr(s.Effort),

		creationDate: copyPtr(s.CreationDate),
		updateDate:   copyPtr(s.UpdateDate),
		closeDate:    copyPtr(s.CloseDate),
		selectedAt:   copyPtr(s.SelectedAt),

		tags:         copyStrings(s.Tags),
		codeVariants: copyStrings(s.CodeVariants),

		onChangedLine:                 s.IsOnChangedLine,
		newCodeReferenceIssue:         s.IsNewCodeReferenceIssue,
		noLongerNewCodeReferenceIssue: s.IsNoLongerNewCodeReferenceIssue,
		quickFixAvailable:             s.IsQuickFixAvailable,

		anticipatedTransitionUUID: copyPtr(s.AnticipatedTransitionUUID),

		comments: append([]Comment(nil), s.Comments...),
		changes:  append([]*FieldDiffs(nil), s.Changes...),
	}
}
