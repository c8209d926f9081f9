package ticket

import "strings"

// Ticket is a read-only snapshot of a help-desk issue taken during one
// routing pass. It is never persisted and must be re-fetched for later
// decisions.
type Ticket struct {
	Key         string
	Reporter    *Person
	Summary     string
	Description string // plain text flattened from the tracker's rich text
	Created     string
}

// Person is a tracker user as seen on a ticket.
type Person struct {
	Name  string
	Email string
}

// TextFields returns the free-text fields searched for dataset identifiers.
func (t Ticket) TextFields() map[string]string {
	return map[string]string{
		"summary":     t.Summary,
		"description": t.Description,
	}
}

// ChangeEvent is one entry of a ticket's changelog.
type ChangeEvent struct {
	ID      string
	Author  string
	Created string
	Items   []ChangeItem
}

// ChangeItem is a single field change inside a ChangeEvent.
type ChangeItem struct {
	Field      string
	FieldID    string
	From       string
	FromString string
	To         string
	ToString   string
}

// IsAssignee reports whether the item records a change to the assignee field.
func (i ChangeItem) IsAssignee() bool {
	return strings.EqualFold(i.FieldID, "assignee") || strings.EqualFold(i.Field, "assignee")
}

// Visibility restricts who can read a comment. The zero value is public.
type Visibility struct {
	Role string
}

// Public is the unrestricted comment visibility.
var Public = Visibility{}

// Role returns a visibility restricted to members of the named project role.
func Role(name string) Visibility {
	return Visibility{Role: name}
}

// IsPublic reports whether the comment is visible to everyone.
func (v Visibility) IsPublic() bool {
	return v.Role == ""
}

// QueueFilter selects the unresolved tickets sitting in one team queue.
type QueueFilter struct {
	Project  string
	Assignee string // team-queue identity the tickets are assigned to
	AfterKey string // optional: only tickets whose key sorts after this one
}
