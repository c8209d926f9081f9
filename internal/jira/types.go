package jira

import "github.com/gdex-tools/datahelp-router/internal/adf"

// Issue represents a JIRA issue from the REST API v3.
type Issue struct {
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Fields contains the issue fields we care about.
type Fields struct {
	Summary     string    `json:"summary"`
	Status      Status    `json:"status"`
	Assignee    *User     `json:"assignee,omitempty"`
	Reporter    *User     `json:"reporter,omitempty"`
	Description *adf.Node `json:"description,omitempty"`
	Created     string    `json:"created,omitempty"`
	Updated     string    `json:"updated,omitempty"`
}

// Status represents a JIRA status.
type Status struct {
	Name string `json:"name"`
}

// User represents a JIRA user.
type User struct {
	AccountID    string `json:"accountId,omitempty"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

// SearchResponse is the response from GET /rest/api/3/search/jql.
type SearchResponse struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	IsLast        bool    `json:"isLast"`
}

// ChangelogPage is one page from GET /rest/api/3/issue/{key}/changelog.
type ChangelogPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	IsLast     bool      `json:"isLast"`
	Values     []History `json:"values"`
}

// History is a single changelog entry.
type History struct {
	ID      string        `json:"id"`
	Author  *User         `json:"author,omitempty"`
	Created string        `json:"created"`
	Items   []HistoryItem `json:"items"`
}

// HistoryItem is one field change within a changelog entry.
type HistoryItem struct {
	Field      string `json:"field"`
	FieldID    string `json:"fieldId"`
	From       string `json:"from"`
	FromString string `json:"fromString"`
	To         string `json:"to"`
	ToString   string `json:"toString"`
}

// AssigneePayload is the body for PUT /rest/api/3/issue/{key}/assignee.
type AssigneePayload struct {
	AccountID string `json:"accountId"`
}

// CommentPayload is the body for POST /rest/api/3/issue/{key}/comment.
type CommentPayload struct {
	Body       *adf.Node          `json:"body"`
	Visibility *CommentVisibility `json:"visibility,omitempty"`
}

// CommentVisibility restricts a comment to a group or project role.
type CommentVisibility struct {
	Type       string `json:"type"` // "role" or "group"
	Value      string `json:"value"`
	Identifier string `json:"identifier,omitempty"`
}
