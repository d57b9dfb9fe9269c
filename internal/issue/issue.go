package issue

import (
	"fmt"
	"time"
)

const (
	// messageByteBudget is the storage budget for the message column,
	// sized for worst-case 3-bytes-per-character UTF-8 text. The rune cap
	// is derived from it rather than hard-coded so a storage change only
	// needs the budget updated.
	messageByteBudget = 4000
	maxMessageRunes   = messageByteBudget / 3
)

// ValidationError is the invalid-argument error kind returned by the
// validating setters. The message is the full, fixed error text.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Issue is a mutable code-quality issue record: identity, classification,
// location, remediation cost, lifecycle timestamps, and a chronological
// ledger of field-level changes. It is a single-owner value; callers must
// confine each record to one workflow at a time.
//
// All state is reached through methods. Setters with invariants return a
// ValidationError and leave the record unchanged on failure; a nil argument
// to a pointer-typed setter clears the field.
type Issue struct {
	key          string
	projectKey   string
	componentKey string
	ruleKey      string

	status   string
	severity *Severity
	message  *string
	line     *int
	gap      *float64
	effort   *time.Duration

	creationDate *time.Time
	updateDate   *time.Time
	closeDate    *time.Time
	selectedAt   *time.Time

	tags         []string
	codeVariants []string

	onChangedLine                 bool
	newCodeReferenceIssue         bool
	noLongerNewCodeReferenceIssue bool
	quickFixAvailable             bool

	anticipatedTransitionUUID *string

	comments []Comment
	changes  []*FieldDiffs
}

// New returns an empty record: every optional field absent, collections empty.
func New() *Issue {
	return &Issue{}
}

// Equal reports whether two records represent the same issue. Identity is
// derived solely from the key; use Key() when a record serves as a map key.
func (i *Issue) Equal(other *Issue) bool {
	return other != nil && i.key == other.key
}

func (i *Issue) Key() string          { return i.key }
func (i *Issue) ProjectKey() string   { return i.projectKey }
func (i *Issue) ComponentKey() string { return i.componentKey }
func (i *Issue) RuleKey() string      { return i.ruleKey }

func (i *Issue) SetKey(key string)          { i.key = key }
func (i *Issue) SetProjectKey(key string)   { i.projectKey = key }
func (i *Issue) SetComponentKey(key string) { i.componentKey = key }
func (i *Issue) SetRuleKey(key string)      { i.ruleKey = key }

func (i *Issue) Status() string { return i.status }

// SetStatus sets the workflow state. A nil value clears it; an empty string
// is rejected.
func (i *Issue) SetStatus(status *string) error {
	if status == nil {
		i.status = ""
		return nil
	}
	if *status == "" {
		return validationErrorf("Status must be set")
	}
	i.status = *status
	return nil
}

func (i *Issue) Severity() *Severity { return i.severity }

func (i *Issue) SetSeverity(severity *Severity) error {
	if severity == nil {
		i.severity = nil
		return nil
	}
	if !severity.Valid() {
		return validationErrorf("Not a valid severity: %s", *severity)
	}
	s := *severity
	i.severity = &s
	return nil
}

func (i *Issue) Message() *string { return i.message }

// SetMessage bounds the message to the storage budget: anything past the
// rune cap is cut off, with no marker appended.
func (i *Issue) SetMessage(message *string) {
	if message == nil {
		i.message = nil
		return
	}
	m := *message
	if runes := []rune(m); len(runes) > maxMessageRunes {
		m = string(runes[:maxMessageRunes])
	}
	i.message = &m
}

func (i *Issue) Line() *int { return i.line }

func (i *Issue) SetLine(line *int) error {
	if line != nil && *line <= 0 {
		return validationErrorf("Line must be null or greater than zero (got %d)", *line)
	}
	i.line = copyPtr(line)
	return nil
}

func (i *Issue) Gap() *float64 { return i.gap }

func (i *Issue) SetGap(gap *float64) error {
	if gap != nil && *gap < 0 {
		return validationErrorf("Gap must be greater than or equal 0 (got %v)", *gap)
	}
	i.gap = copyPtr(gap)
	return nil
}

func (i *Issue) Effort() *time.Duration { return i.effort }

func (i *Issue) SetEffort(effort *time.Duration) {
	i.effort = copyPtr(effort)
}

// EffortInMinutes returns the remediation effort at minute resolution, or
// nil when no effort is set.
func (i *Issue) EffortInMinutes() *int64 {
	if i.effort == nil {
		return nil
	}
	minutes := int64(*i.effort / time.Minute)
	return &minutes
}

func (i *Issue) CreationDate() *time.Time { return i.creationDate }
func (i *Issue) UpdateDate() *time.Time   { return i.updateDate }
func (i *Issue) CloseDate() *time.Time    { return i.closeDate }
func (i *Issue) SelectedAt() *time.Time   { return i.selectedAt }

func (i *Issue) SetCreationDate(t *time.Time) { i.creationDate = copyPtr(t) }
func (i *Issue) SetUpdateDate(t *time.Time)   { i.updateDate = copyPtr(t) }
func (i *Issue) SetCloseDate(t *time.Time)    { i.closeDate = copyPtr(t) }
func (i *Issue) SetSelectedAt(t *time.Time)   { i.selectedAt = copyPtr(t) }

// Tags returns the tag set; never nil.
func (i *Issue) Tags() []string {
	return copyStrings(i.tags)
}

// SetTags replaces the tag set, dropping duplicates while keeping first
// occurrence order.
func (i *Issue) SetTags(tags []string) {
	i.tags = dedupe(tags)
}

// CodeVariants returns the code variant set; never nil.
func (i *Issue) CodeVariants() []string {
	return copyStrings(i.codeVariants)
}

func (i *Issue) SetCodeVariants(variants []string) {
	i.codeVariants = dedupe(variants)
}

func (i *Issue) IsOnChangedLine() bool                 { return i.onChangedLine }
func (i *Issue) IsNewCodeReferenceIssue() bool         { return i.newCodeReferenceIssue }
func (i *Issue) IsNoLongerNewCodeReferenceIssue() bool { return i.noLongerNewCodeReferenceIssue }
func (i *Issue) IsQuickFixAvailable() bool             { return i.quickFixAvailable }

func (i *Issue) SetIsOnChangedLine(v bool)                 { i.onChangedLine = v }
func (i *Issue) SetIsNewCodeReferenceIssue(v bool)         { i.newCodeReferenceIssue = v }
func (i *Issue) SetIsNoLongerNewCodeReferenceIssue(v bool) { i.noLongerNewCodeReferenceIssue = v }
func (i *Issue) SetQuickFixAvailable(v bool)               { i.quickFixAvailable = v }

// IsToBeMigratedAsNewCodeReferenceIssue reports whether the issue must be
// re-attributed to the new-code reference boundary during reconciliation:
// it sits on a changed line and is neither already a new-code reference
// issue nor one that stopped being one.
func (i *Issue) IsToBeMigratedAsNewCodeReferenceIssue() bool {
	return i.onChangedLine && !i.newCodeReferenceIssue && !i.noLongerNewCodeReferenceIssue
}

func (i *Issue) AnticipatedTransitionUUID() *string { return i.anticipatedTransitionUUID }

func (i *Issue) SetAnticipatedTransitionUUID(uuid *string) {
	i.anticipatedTransitionUUID = copyPtr(uuid)
}

// Comments returns a read-only snapshot of the comment sequence. Appending
// to the returned slice cannot reach the record's own sequence; only
// AddComment mutates it.
func (i *Issue) Comments() []Comment {
	out := make([]Comment, len(i.comments))
	copy(out, i.comments)
	return out
}

func (i *Issue) AddComment(c Comment) {
	i.comments = append(i.comments, c)
}

// SetFieldChange records a field edit in the change ledger. Edits merge into
// the current change when one exists; otherwise a new change is created,
// appended, and becomes current. The context's authorship metadata is
// stamped (or refreshed) on the touched change either way.
func (i *Issue) SetFieldChange(changeCtx ChangeContext, field string, oldValue, newValue any) {
	current := i.CurrentChange()
	if current == nil {
		current = NewFieldDiffs()
		current.SetIssueKey(i.key)
		i.changes = append(i.changes, current)
	}
	current.Set(field, oldValue, newValue)
	current.StampContext(changeCtx)
}

// AddChange appends a pre-built change verbatim. A nil change is a no-op.
func (i *Issue) AddChange(change *FieldDiffs) {
	if change == nil {
		return
	}
	i.changes = append(i.changes, change)
}

// Changes returns the ordered change ledger, oldest first. The slice is a
// snapshot; the record keeps exclusive ownership of the backing sequence.
func (i *Issue) Changes() []*FieldDiffs {
	out := make([]*FieldDiffs, len(i.changes))
	copy(out, i.changes)
	return out
}

// CurrentChange returns the most recently appended change, or nil when the
// ledger is empty.
func (i *Issue) CurrentChange() *FieldDiffs {
	if len(i.changes) == 0 {
		return nil
	}
	return i.changes[len(i.changes)-1]
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func dedupe(s []string) []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
