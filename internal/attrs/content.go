package attrs

import (
	"bytes"
	"encoding/json"
	"strings"
)

// node is a ProseMirror node as stored in tasks.content.
type node struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Content []node `json:"content"`
}

// ContentText flattens task content into plain text. Text nodes contribute
// their text, links contribute their inner text, hard breaks become a
// newline and paragraphs after the first are separated by a newline.
// Malformed content yields "" and ok=false.
func ContentText(raw []byte) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var nodes []node
	if raw[0] == '{' {
		var root node
		if err := json.Unmarshal(raw, &root); err != nil {
			return "", false
		}
		nodes = root.Content
		if root.Type != "doc" {
			nodes = []node{root}
		}
	} else if err := json.Unmarshal(raw, &nodes); err != nil {
		return "", false
	}

	var b strings.Builder
	for i, n := range nodes {
		if i > 0 && n.Type == "paragraph" {
			b.WriteString("\n")
		}
		writeNode(&b, n)
	}
	return b.String(), true
}

func writeNode(b *strings.Builder, n node) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
	case "hard_break":
		b.WriteString("\n")
	default:
		for _, child := range n.Content {
			writeNode(b, child)
		}
	}
}
