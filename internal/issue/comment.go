package issue

import "time"

// Comment is one entry of an issue's discussion thread. The record owns its
// comment sequence; comments themselves are plain values here.
type Comment struct {
	Key          string    `json:"key"`
	IssueKey     string    `json:"issue_key"`
	UserUUID     *string   `json:"user_uuid,omitempty"`
	MarkdownText string    `json:"markdown_text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
