// Package site maps a document's origin to the declarative adapter that
// knows how to read that provider's conversation markup. Adapters are pure
// data plus small predicate functions; there is no shared state between
// them, and the extractor never branches on a provider name.
package site

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/BigYang-Web/dialogue-index/dom"
)

// Adapter describes how to extract conversation structure from one
// provider's pages.
type Adapter struct {
	// Name is a short provider label used for logging.
	Name string

	// Host is the origin substring this adapter claims.
	Host string

	// Messages matches every conversation bubble, user and assistant alike,
	// in document order.
	Messages dom.Selector

	// IsAssistant classifies a matched bubble.
	IsAssistant func(el *html.Node) bool

	// ContentNode resolves the text-bearing node inside a bubble. Nil means
	// the bubble itself carries the text. A nil return from the function
	// means the content could not be located; the message then extracts as
	// empty and is dropped.
	ContentNode func(el *html.Node, assistant bool) *html.Node
}

// Resolve applies the adapter's content resolution, defaulting to the
// element itself when no resolver is configured.
func (a *Adapter) Resolve(el *html.Node, assistant bool) *html.Node {
	if a.ContentNode == nil {
		return el
	}
	return a.ContentNode(el, assistant)
}

// Registry is a fixed, ordered adapter table. Exactly one adapter is active
// per document; the first Host substring match wins.
type Registry struct {
	adapters []*Adapter
}

// NewRegistry creates a registry from an ordered adapter list.
func NewRegistry(adapters ...*Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Add appends adapters to the table. Later entries only match origins the
// earlier entries do not claim.
func (r *Registry) Add(adapters ...*Adapter) {
	r.adapters = append(r.adapters, adapters...)
}

// Adapters returns the ordered table.
func (r *Registry) Adapters() []*Adapter {
	return r.adapters
}

// Resolve returns the adapter for an origin, or nil for unsupported sites.
// A nil adapter is not an error: downstream extraction treats it as
// "produce an empty result".
func (r *Registry) Resolve(origin string) *Adapter {
	for _, a := range r.adapters {
		if a.Host != "" && strings.Contains(origin, a.Host) {
			return a
		}
	}
	return nil
}
