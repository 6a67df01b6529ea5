package browser

import (
	"context"
	"fmt"
)

// scrollJS locates the target element, preferring a stamped anchor
// attribute (pages that carry their own) and falling back to the structural
// path from the extractor's identity map. Found elements are scrolled to
// the viewport center and flashed; the flash restores the element's own
// styling afterwards.
const scrollJS = `(id, path, flashMs) => {
	let target = null;
	if (id) {
		target = document.querySelector('[data-nav-id="' + CSS.escape(id) + '"]');
	}
	if (!target && path) {
		try {
			target = document.evaluate(path, document, null,
				XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} catch (e) {
			target = null;
		}
	}
	if (!target) return false;

	target.scrollIntoView({ behavior: "smooth", block: "center" });

	const origTransition = target.style.transition;
	const origBg = target.style.backgroundColor;
	target.style.transition = "background-color 0.5s";
	target.style.backgroundColor = "rgba(59, 130, 246, 0.1)";
	setTimeout(() => {
		target.style.backgroundColor = origBg;
		setTimeout(() => { target.style.transition = origTransition; }, 500);
	}, flashMs);

	return true;
}`

// ScrollToAnchor scrolls the anchored element into view and flashes a
// transient highlight. False means no element carries the anchor — an
// expected race with the host page re-rendering, not an error.
func (t *Tab) ScrollToAnchor(ctx context.Context, id, path string) (bool, error) {
	res, err := t.Page.Context(ctx).Eval(scrollJS, id, path, t.highlight.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("browser: scroll eval: %w", err)
	}
	return res.Value.Bool(), nil
}
