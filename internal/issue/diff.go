package issue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Diff holds the before/after values of a single field within a change.
type Diff struct {
	oldValue any
	newValue any
}

func (d *Diff) OldValue() any { return d.oldValue }
func (d *Diff) NewValue() any { return d.newValue }

// FieldDiffs groups the field-level diffs that belong to one logical change,
// together with the authorship metadata of that change. Field entries keep
// insertion order; setting an already-present field overwrites its entry in
// place.
type FieldDiffs struct {
	issueKey      *string
	userUUID      *string
	creationDate  time.Time
	externalUser  *string
	webhookSource *string

	order []string
	diffs map[string]*Diff
}

func NewFieldDiffs() *FieldDiffs {
	return &FieldDiffs{diffs: make(map[string]*Diff)}
}

// Set records a diff for the given field, overwriting any prior entry.
func (d *FieldDiffs) Set(field string, oldValue, newValue any) *Diff {
	diff, ok := d.diffs[field]
	if !ok {
		diff = &Diff{}
		d.diffs[field] = diff
		d.order = append(d.order, field)
	}
	diff.oldValue = oldValue
	diff.newValue = newValue
	return diff
}

// Get returns the diff for the given field, or nil when the field was not
// touched in this change.
func (d *FieldDiffs) Get(field string) *Diff {
	return d.diffs[field]
}

// Fields returns the touched field names in insertion order.
func (d *FieldDiffs) Fields() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

func (d *FieldDiffs) Len() int { return len(d.order) }

func (d *FieldDiffs) IssueKey() *string       { return d.issueKey }
func (d *FieldDiffs) UserUUID() *string       { return d.userUUID }
func (d *FieldDiffs) CreationDate() time.Time { return d.creationDate }
func (d *FieldDiffs) ExternalUser() *string   { return d.externalUser }
func (d *FieldDiffs) WebhookSource() *string  { return d.webhookSource }

func (d *FieldDiffs) SetIssueKey(key string) {
	d.issueKey = &key
}

func (d *FieldDiffs) SetUserUUID(uuid *string) {
	d.userUUID = uuid
}

func (d *FieldDiffs) SetCreationDate(date time.Time) {
	d.creationDate = date
}

func (d *FieldDiffs) SetExternalUser(user *string) {
	d.externalUser = user
}

func (d *FieldDiffs) SetWebhookSource(source *string) {
	d.webhookSource = source
}

// StampContext attaches (or refreshes) the authorship metadata of the given
// change context onto this change.
func (d *FieldDiffs) StampContext(c ChangeContext) {
	d.userUUID = c.UserUUID
	d.creationDate = c.Date
	d.externalUser = c.ExternalUser
	d.webhookSource = c.WebhookSource
}

// Encode renders the field entries as the changelog wire format:
// "field=old|new" segments joined by commas, nil values rendered empty.
// Field order is insertion order, making the encoding deterministic.
func (d *FieldDiffs) Encode() string {
	var sb strings.Builder
	for i, field := range d.order {
		if i > 0 {
			sb.WriteByte(',')
		}
		diff := d.diffs[field]
		sb.WriteString(field)
		sb.WriteByte('=')
		sb.WriteString(encodeValue(diff.oldValue))
		sb.WriteByte('|')
		sb.WriteString(encodeValue(diff.newValue))
	}
	return sb.String()
}

// ParseFieldDiffs decodes a changelog wire string produced by Encode.
// Decoded values come back as strings; an empty side decodes to nil.
func ParseFieldDiffs(encoded string) (*FieldDiffs, error) {
	d := NewFieldDiffs()
	if encoded == "" {
		return d, nil
	}
	for _, segment := range strings.Split(encoded, ",") {
		field, values, ok := strings.Cut(segment, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("malformed diff segment %q", segment)
		}
		oldRaw, newRaw, _ := strings.Cut(values, "|")
		d.Set(field, decodeValue(oldRaw), decodeValue(newRaw))
	}
	return d, nil
}

type fieldDiffsJSON struct {
	IssueKey      *string   `json:"issue_key,omitempty"`
	UserUUID      *string   `json:"user_uuid,omitempty"`
	CreationDate  time.Time `json:"creation_date"`
	ExternalUser  *string   `json:"external_user,omitempty"`
	WebhookSource *string   `json:"webhook_source,omitempty"`
	Diffs         string    `json:"diffs"`
}

// MarshalJSON serializes the change as its authorship metadata plus the
// encoded wire string of the field entries.
func (d *FieldDiffs) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldDiffsJSON{
		IssueKey:      d.issueKey,
		UserUUID:      d.userUUID,
		CreationDate:  d.creationDate,
		ExternalUser:  d.externalUser,
		WebhookSource: d.webhookSource,
		Diffs:         d.Encode(),
	})
}

func (d *FieldDiffs) UnmarshalJSON(data []byte) error {
	var raw fieldDiffsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseFieldDiffs(raw.Diffs)
	if err != nil {
		return err
	}
	*d = *parsed
	d.issueKey = raw.IssueKey
	d.userUUID = raw.UserUUID
	d.creationDate = raw.CreationDate
	d.externalUser = raw.ExternalUser
	d.webhookSource = raw.WebhookSource
	return nil
}

func encodeValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func decodeValue(raw string) any {
	if raw == "" {
		return nil
	}
	return raw
}
