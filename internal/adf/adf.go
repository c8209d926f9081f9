// Package adf converts between the Atlassian Document Format used by Jira
// Cloud rich-text fields and plain text.
package adf

// Node represents a node in the Atlassian Document Format.
type Node struct {
	Type    string         `json:"type"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark represents an inline formatting mark in ADF.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Doc wraps block nodes in a version 1 document.
func Doc(blocks ...Node) *Node {
	if blocks == nil {
		blocks = []Node{}
	}
	return &Node{
		Type:    "doc",
		Attrs:   map[string]any{"version": 1},
		Content: blocks,
	}
}

// Paragraph builds a paragraph from inline nodes.
func Paragraph(inline ...Node) Node {
	return Node{Type: "paragraph", Content: inline}
}

// Text builds a text node with optional marks.
func Text(s string, marks ...Mark) Node {
	return Node{Type: "text", Text: s, Marks: marks}
}

// Strong is the bold mark.
var Strong = Mark{Type: "strong"}
