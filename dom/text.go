package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedTags never contribute visible text.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"svg":      true,
}

// VisibleText approximates the rendered text of a node: text content of the
// subtree minus script/style/template subtrees and aria-hidden regions,
// with whitespace runs collapsed to single spaces and the result trimmed.
func VisibleText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	collectText(n, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedTags[n.Data] || GetAttr(n, "aria-hidden") == "true" {
			return
		}
		// Block boundaries separate words that are adjacent in markup.
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// TruncateText shortens s to at most max runes without splitting a
// multi-byte sequence. Downstream search operates only on this prefix.
func TruncateText(s string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

// RenderHTML serializes a node's subtree back to HTML. Used by the
// transcript exporter, which needs markup rather than flattened text.
func RenderHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return ""
	}
	return b.String()
}
