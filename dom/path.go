package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Path returns an XPath-style structural path for an element, e.g.
// /html[1]/body[1]/div[2]. It is the identity key the extractor uses
// to recognize an element across re-parses of the same document, and the
// locator the browser layer uses for document.evaluate when scrolling.
//
// The sibling index is always present, so an element's path does not shift
// when later siblings appear (a chat list appending messages must not
// re-key the existing ones). Paths are only as stable as the element's
// position; host-page re-ordering or prepending aliases them.
func Path(n *html.Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		parts = append(parts, pathStep(cur))
	}
	// parts are innermost-first.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

func pathStep(n *html.Node) string {
	idx := 1
	for sib := firstElement(n.Parent); sib != nil && sib != n; sib = nextElement(sib) {
		if sib.Data == n.Data {
			idx++
		}
	}
	return fmt.Sprintf("%s[%d]", n.Data, idx)
}

func firstElement(parent *html.Node) *html.Node {
	if parent == nil {
		return nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for c := n.NextSibling; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}
