// Package dom provides CSS selector matching, visible-text collection, and
// structural paths over parsed HTML documents. It is the substrate the site
// adapters and the extractor are built on.
//
// The selector engine supports the subset the provider configurations need:
//   - tag: "article", "div", "model-response"
//   - .class: ".markdown", ".query-text"
//   - #id: "#main"
//   - tag.class, tag#id combinations
//   - tag[attr], tag[attr=val], tag[attr*=val] (substring)
//   - descendant combinator (space), selector groups (comma)
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Selector is a compiled selector group. Matching is cheap enough to run on
// every extraction pass without caching per document.
type Selector struct {
	chains [][]simpleSelector
}

type simpleSelector struct {
	tag      string
	id       string
	classes  []string
	attrKey  string
	attrVal  string
	attrSub  bool // attrVal is a substring match ([attr*=val])
	hasAttr  bool // bare [attr] presence test
}

// Compile parses a comma-separated selector group. Unparseable input yields
// a selector that matches nothing rather than an error.
func Compile(group string) Selector {
	var s Selector
	for _, part := range splitGroup(group) {
		chain := compileChain(part)
		if len(chain) > 0 {
			s.chains = append(s.chains, chain)
		}
	}
	return s
}

// splitGroup splits on commas that are outside attribute brackets.
func splitGroup(group string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(group); i++ {
		switch group[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(group[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(group[start:]))
	return parts
}

func compileChain(sel string) []simpleSelector {
	fields := strings.Fields(sel)
	chain := make([]simpleSelector, 0, len(fields))
	for _, f := range fields {
		chain = append(chain, parseSimple(f))
	}
	return chain
}

// parseSimple parses "tag.class", "#id", "tag[attr*=val]", etc.
func parseSimple(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		switch eq := strings.Index(attrPart, "*="); {
		case eq >= 0:
			s.attrKey = attrPart[:eq]
			s.attrVal = strings.Trim(attrPart[eq+2:], `"'`)
			s.attrSub = true
		default:
			if eq := strings.IndexByte(attrPart, '='); eq >= 0 {
				s.attrKey = attrPart[:eq]
				s.attrVal = strings.Trim(attrPart[eq+1:], `"'`)
			} else {
				s.attrKey = attrPart
				s.hasAttr = true
			}
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		for _, c := range strings.Split(sel[idx+1:], ".") {
			if c != "" {
				s.classes = append(s.classes, c)
			}
		}
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

// QueryAll returns all elements under root matching the selector group, in
// document order. Like querySelectorAll, the root itself is not a
// candidate; a node matches when any comma branch matches it.
func (s Selector) QueryAll(root *html.Node) []*html.Node {
	if len(s.chains) == 0 || root == nil {
		return nil
	}
	var results []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) {
			if s.matches(n) {
				results = append(results, n)
			}
		})
	}
	return results
}

// Query returns the first matching descendant in document order, or nil.
func (s Selector) Query(root *html.Node) *html.Node {
	for _, n := range s.QueryAll(root) {
		return n
	}
	return nil
}

// matches reports whether the node satisfies any branch of the group. A
// descendant chain matches when the last part matches the node and each
// preceding part matches some strict ancestor, innermost first.
func (s Selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, chain := range s.chains {
		if matchChain(n, chain) {
			return true
		}
	}
	return false
}

func matchChain(n *html.Node, chain []simpleSelector) bool {
	if !matchSimple(n, chain[len(chain)-1]) {
		return false
	}
	anc := n.Parent
	for i := len(chain) - 2; i >= 0; i-- {
		for {
			if anc == nil {
				return false
			}
			if anc.Type == html.ElementNode && matchSimple(anc, chain[i]) {
				anc = anc.Parent
				break
			}
			anc = anc.Parent
		}
	}
	return true
}

func matchSimple(n *html.Node, s simpleSelector) bool {
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && GetAttr(n, "id") != s.id {
		return false
	}
	for _, c := range s.classes {
		if !HasClass(n, c) {
			return false
		}
	}
	if s.attrKey != "" {
		val, ok := lookupAttr(n, s.attrKey)
		if !ok {
			return false
		}
		switch {
		case s.attrSub:
			if !strings.Contains(val, s.attrVal) {
				return false
			}
		case !s.hasAttr:
			if val != s.attrVal {
				return false
			}
		}
	}
	return true
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// GetAttr returns the value of an attribute on a node, or "".
func GetAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// HasClass reports whether the node's class list contains the exact class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(GetAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// ClassContains reports whether the raw class attribute contains the
// substring. Providers with build-hashed class names (e.g. "answerItem-x7")
// are classified this way.
func ClassContains(n *html.Node, sub string) bool {
	return strings.Contains(GetAttr(n, "class"), sub)
}

// Closest returns the nearest ancestor-or-self element matching the
// selector group, or nil.
func Closest(n *html.Node, group string) *html.Node {
	s := Compile(group)
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && s.matches(cur) {
			return cur
		}
	}
	return nil
}
