package router

import (
	"fmt"
	"strings"

	"github.com/gdex-tools/datahelp-router/internal/dataset"
)

// RecurringIssues are the known ticket categories and their standard
// resolutions, listed in the note of every fallback assignment.
var RecurringIssues = []string{
	"**GitHub integration requests**: add the named GitHub participant to the request before posting a customer-visible comment, otherwise the reply is not delivered to them.",
	"**Spam or unsolicited sales email**: reassign the ticket to the help-desk queue owner and resolve it as Spam. Do not reply to the sender.",
	"**Account or password problems**: point the user to the self-service account page and resolve the ticket once they confirm access.",
}

const noteHeading = "**Automated routing**"

func escalationLine(contact string) string {
	if contact == "" {
		return "If this assignment is wrong, reassign the ticket or raise it with the service desk lead."
	}
	return fmt.Sprintf("If this assignment is wrong, reassign the ticket or contact %s.", contact)
}

// ownerNote is the internal note added when a ticket goes straight to the
// dataset owner.
func ownerNote(id dataset.ID, owner, escalation string) string {
	var b strings.Builder
	b.WriteString(noteHeading)
	b.WriteString("\n")
	fmt.Fprintf(&b, "This ticket mentions dataset %s. The dataset directory lists %s as its contact, so the ticket was assigned to them automatically.\n", id, owner)
	b.WriteString(escalationLine(escalation))
	return b.String()
}

// fallbackNote is the internal note added when the directory contact is the
// catch-all address and a pool member receives the ticket instead.
func fallbackNote(id dataset.ID, catchAll, assignee, escalation string) string {
	var b strings.Builder
	b.WriteString(noteHeading)
	b.WriteString("\n")
	fmt.Fprintf(&b, "This ticket mentions dataset %s. Its directory contact is the shared address %s, which does not take tickets, so it was assigned to %s from the help-desk rotation.\n", id, catchAll, assignee)
	b.WriteString(escalationLine(escalation))
	b.WriteString("\n\n**Recurring issues and standard resolutions**\n")
	for _, issue := range RecurringIssues {
		b.WriteString("- ")
		b.WriteString(issue)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
