package adf

import (
	"fmt"
	"strings"
)

// PlainText flattens an ADF tree to text. Block nodes end with a newline,
// list items are prefixed with "- " or "N. ", and link targets are appended
// after the link text so identifiers hidden in URLs stay searchable. Media,
// macros and other non-text nodes are dropped.
func PlainText(node *Node) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	renderNode(&b, node, "")
	return strings.TrimRight(b.String(), "\n")
}

func renderNode(b *strings.Builder, node *Node, listPrefix string) {
	switch node.Type {
	case "doc", "blockquote", "panel", "expand", "nestedExpand", "layoutSection", "layoutColumn":
		renderChildren(b, node)

	case "paragraph", "heading":
		renderInline(b, node)
		b.WriteString("\n")

	case "bulletList":
		for i := range node.Content {
			renderNode(b, &node.Content[i], listPrefix+"- ")
		}

	case "orderedList":
		for i := range node.Content {
			renderNode(b, &node.Content[i], fmt.Sprintf("%s%d. ", listPrefix, i+1))
		}

	case "listItem":
		for i := range node.Content {
			child := &node.Content[i]
			if i == 0 && child.Type == "paragraph" {
				b.WriteString(listPrefix)
				renderInline(b, child)
				b.WriteString("\n")
				continue
			}
			renderNode(b, child, indentPrefix(listPrefix))
		}

	case "codeBlock":
		for _, child := range node.Content {
			b.WriteString(child.Text)
		}
		b.WriteString("\n")

	case "table":
		for _, row := range node.Content {
			cells := make([]string, 0, len(row.Content))
			for i := range row.Content {
				var cell strings.Builder
				renderChildren(&cell, &row.Content[i])
				cells = append(cells, strings.TrimSpace(strings.ReplaceAll(cell.String(), "\n", " ")))
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString("\n")
		}

	case "rule":
		b.WriteString("\n")

	case "text", "hardBreak", "mention", "emoji", "inlineCard", "date", "status":
		renderInlineNode(b, node)
	}
}

func renderChildren(b *strings.Builder, node *Node) {
	for i := range node.Content {
		renderNode(b, &node.Content[i], "")
	}
}

func renderInline(b *strings.Builder, node *Node) {
	for i := range node.Content {
		renderInlineNode(b, &node.Content[i])
	}
}

func renderInlineNode(b *strings.Builder, node *Node) {
	switch node.Type {
	case "text":
		b.WriteString(node.Text)
		for _, m := range node.Marks {
			if m.Type != "link" {
				continue
			}
			if href, ok := m.Attrs["href"].(string); ok && href != node.Text {
				b.WriteString(" (")
				b.WriteString(href)
				b.WriteString(")")
			}
		}
	case "hardBreak":
		b.WriteString("\n")
	case "mention", "emoji", "status":
		b.WriteString(attrString(node, "text"))
	case "inlineCard":
		b.WriteString(attrString(node, "url"))
	case "date":
		b.WriteString(attrString(node, "timestamp"))
	}
}

func attrString(node *Node, key string) string {
	if v, ok := node.Attrs[key].(string); ok {
		return v
	}
	return ""
}

func indentPrefix(prefix string) string {
	return strings.Repeat(" ", len(prefix))
}
