package extract

import "sync"

// Anchors is the identity map behind stable message and header IDs. The
// original browser implementation stamped data-nav-id attributes into the
// observed DOM; here identity is owned by the extractor instead, keyed by
// the element's structural path, so the observed document is never written.
//
// An ID is created once, on the first extraction pass that sees the
// element, and is never reassigned — even when the element's text changes
// later. Positional fallback IDs alias if the host page re-orders elements
// after first sight; accepted limitation.
type Anchors struct {
	mu     sync.RWMutex
	byPath map[string]string
	byID   map[string]string
}

// NewAnchors creates an empty identity map. One instance lives per document
// session.
func NewAnchors() *Anchors {
	return &Anchors{
		byPath: make(map[string]string),
		byID:   make(map[string]string),
	}
}

// Assign returns the ID for a structural path, registering the candidate on
// first sight and reusing the stored ID thereafter.
func (a *Anchors) Assign(path, candidate string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.byPath[path]; ok {
		return id
	}
	a.byPath[path] = candidate
	a.byID[candidate] = path
	return candidate
}

// Record registers an externally supplied ID (a pre-existing data-nav-id
// attribute in the page) so Locate can resolve it later.
func (a *Anchors) Record(path, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.byPath[path] = id
	a.byID[id] = path
}

// Locate resolves an ID back to its structural path. A missing ID is an
// expected race (the element left the document), not an error.
func (a *Anchors) Locate(id string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	path, ok := a.byID[id]
	return path, ok
}

// Len returns the number of tracked anchors.
func (a *Anchors) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byPath)
}
