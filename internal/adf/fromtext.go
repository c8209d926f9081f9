package adf

import (
	"regexp"
	"strings"
)

var boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// FromText converts lightly formatted text to an ADF document.
//
// Blank lines separate paragraphs, consecutive lines starting with "- " form
// a bullet list, and **text** is rendered bold. Lines inside a paragraph are
// joined with hard breaks so the note keeps its line layout.
func FromText(text string) *Node {
	doc := Doc()
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	i := 0
	for i < len(lines) {
		line := lines[i]

		if strings.TrimSpace(line) == "" {
			i++
			continue
		}

		if isBullet(line) {
			list := Node{Type: "bulletList"}
			for i < len(lines) && isBullet(lines[i]) {
				item := strings.TrimSpace(lines[i])[2:]
				list.Content = append(list.Content, Node{
					Type:    "listItem",
					Content: []Node{Paragraph(parseInline(item)...)},
				})
				i++
			}
			doc.Content = append(doc.Content, list)
			continue
		}

		var para []Node
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" && !isBullet(lines[i]) {
			if len(para) > 0 {
				para = append(para, Node{Type: "hardBreak"})
			}
			para = append(para, parseInline(lines[i])...)
			i++
		}
		doc.Content = append(doc.Content, Paragraph(para...))
	}

	return doc
}

func isBullet(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "- ")
}

// parseInline splits text on **bold** spans.
func parseInline(text string) []Node {
	var nodes []Node
	remaining := text
	for remaining != "" {
		loc := boldRe.FindStringSubmatchIndex(remaining)
		if loc == nil {
			nodes = append(nodes, Text(remaining))
			break
		}
		if loc[0] > 0 {
			nodes = append(nodes, Text(remaining[:loc[0]]))
		}
		nodes = append(nodes, Text(remaining[loc[2]:loc[3]], Strong))
		remaining = remaining[loc[1]:]
	}
	if len(nodes) == 0 {
		return []Node{Text(text)}
	}
	return nodes
}
