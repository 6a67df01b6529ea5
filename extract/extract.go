// Package extract turns a parsed document and a site adapter into the
// ordered, normalized message sequence. Extraction is idempotent: two
// passes over an unchanged document produce byte-identical results,
// including IDs. Provider markup is unverified and inconsistent, so every
// per-element failure is contained — a partial outline always beats none.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/BigYang-Web/dialogue-index/dom"
	"github.com/BigYang-Web/dialogue-index/message"
	"github.com/BigYang-Web/dialogue-index/site"
)

// PreviewLen is the maximum message text length carried in a snapshot.
// Search and filtering downstream operate only on this prefix.
const PreviewLen = 100

// anchorAttr is honored when the page already carries its own anchor
// stamps from a previous life of the engine.
const anchorAttr = "data-nav-id"

var headingSel = dom.Compile("h1, h2, h3")

// Extractor produces message snapshots from live document parses. It owns
// the anchor identity map; one Extractor lives per document session.
type Extractor struct {
	anchors *Anchors
	logger  *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		anchors: NewAnchors(),
		logger:  logger,
	}
}

// Anchors exposes the identity map for anchor resolution (scroll targets).
func (x *Extractor) Anchors() *Anchors {
	return x.anchors
}

// Extract enumerates the adapter's message elements in document order and
// normalizes each one. A nil adapter yields an empty result. Elements whose
// extraction faults are skipped; the rest of the document still extracts.
func (x *Extractor) Extract(doc *html.Node, a *site.Adapter) []message.Message {
	if doc == nil || a == nil {
		return nil
	}

	elements := a.Messages.QueryAll(doc)
	msgs := make([]message.Message, 0, len(elements))

	for i, el := range elements {
		msg, ok := x.extractOne(el, a, i)
		if !ok {
			continue
		}
		if msg.Text == "" {
			// Blank bubbles (placeholders, typing indicators) are excluded
			// from the result, not merely hidden.
			continue
		}
		msgs = append(msgs, msg)
	}

	x.logger.Debug("extract: pass complete",
		"site", a.Name, "messages", len(msgs), "anchors", x.anchors.Len())
	return msgs
}

// extractOne normalizes a single bubble. Adapter predicates run against
// arbitrary provider markup; a panic here means markup drift, so it is
// contained and the element skipped.
func (x *Extractor) extractOne(el *html.Node, a *site.Adapter, pos int) (msg message.Message, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Warn("extract: element skipped",
				"site", a.Name, "position", pos, "panic", r)
			ok = false
		}
	}()

	id := x.anchorID(el, fmt.Sprintf("msg-%d", pos))

	role := message.RoleUser
	assistant := a.IsAssistant(el)
	if assistant {
		role = message.RoleAssistant
	}

	content := a.Resolve(el, assistant)

	var text string
	if content != nil {
		text = dom.TruncateText(dom.VisibleText(content), PreviewLen)
	}

	msg = message.Message{
		ID:         id,
		Role:       role,
		Text:       text,
		SubHeaders: []message.Header{},
	}

	if assistant && content != nil {
		msg.SubHeaders = x.extractHeaders(content, id)
	}

	return msg, true
}

// extractHeaders enumerates h1–h3 descendants of the content node in
// document order. Header IDs derive from the parent message ID plus the
// ordinal, with the same first-sight stability as message IDs.
func (x *Extractor) extractHeaders(content *html.Node, msgID string) []message.Header {
	headings := headingSel.QueryAll(content)
	headers := make([]message.Header, 0, len(headings))

	for j, h := range headings {
		id := x.anchorID(h, fmt.Sprintf("%s-h-%d", msgID, j))

		// Strip stray markdown hash marks that leak into rendered headings.
		text := strings.TrimSpace(strings.ReplaceAll(dom.VisibleText(h), "#", ""))

		headers = append(headers, message.Header{
			ID:    id,
			Level: message.HeaderLevel(h.Data),
			Text:  text,
		})
	}

	return headers
}

// anchorID resolves the stable ID for an element: a pre-existing anchor
// attribute wins, then the identity map, then the positional candidate.
func (x *Extractor) anchorID(el *html.Node, candidate string) string {
	path := dom.Path(el)
	if stamped := dom.GetAttr(el, anchorAttr); stamped != "" {
		x.anchors.Record(path, stamped)
		return stamped
	}
	return x.anchors.Assign(path, candidate)
}
