// Package panel is the side-panel consumer: it holds the latest snapshot,
// an expand/collapse set that survives re-renders, and a search filter, and
// serves them over HTTP with server-sent-event pushes. It receives
// snapshots as a monitor sink.
package panel

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/BigYang-Web/dialogue-index/message"
)

// Panel is the consumer-side state for one observed document.
type Panel struct {
	mu        sync.RWMutex
	snap      message.Snapshot
	supported bool
	closed    bool
	expanded  map[string]bool
	subs      map[chan message.Snapshot]struct{}

	sanitize *bluemonday.Policy
	logger   *slog.Logger
}

// New creates an empty Panel.
func New(logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{
		expanded: make(map[string]bool),
		subs:     make(map[chan message.Snapshot]struct{}),
		sanitize: bluemonday.StrictPolicy(),
		logger:   logger,
	}
}

// SetSupported records whether the observed origin has an adapter; the UI
// shows the supported-sites tip when it does not.
func (p *Panel) SetSupported(ok bool) {
	p.mu.Lock()
	p.supported = ok
	p.mu.Unlock()
}

// Supported reports the stored flag.
func (p *Panel) Supported() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.supported
}

// SendSnapshot implements monitor.Sink: store the snapshot and fan it out
// to subscribers. Extracted text passes through a strict sanitizer so
// markup leaking out of provider pages never reaches a rendering surface.
func (p *Panel) SendSnapshot(ctx context.Context, snap message.Snapshot) error {
	p.scrub(&snap)

	// Sends stay under the mutex so Close cannot close a channel mid-send.
	// They are non-blocking, so the lock is never held up by a subscriber.
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.snap = snap

	for ch := range p.subs {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop this update, the next one supersedes it.
		}
	}
	return nil
}

// Close implements monitor.Sink. Further SendSnapshot calls become no-ops.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for ch := range p.subs {
		close(ch)
	}
	p.subs = make(map[chan message.Snapshot]struct{})
	return nil
}

func (p *Panel) scrub(snap *message.Snapshot) {
	for i := range snap.Messages {
		m := &snap.Messages[i]
		m.Text = p.sanitize.Sanitize(m.Text)
		for j := range m.SubHeaders {
			m.SubHeaders[j].Text = p.sanitize.Sanitize(m.SubHeaders[j].Text)
		}
	}
}

// Snapshot returns the stored snapshot.
func (p *Panel) Snapshot() message.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Subscribe registers a snapshot channel for SSE delivery. The returned
// cancel function must be called when the subscriber goes away.
func (p *Panel) Subscribe() (<-chan message.Snapshot, func()) {
	ch := make(chan message.Snapshot, 4)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
}

// Toggle flips a message's expand state and returns the new state. The set
// outlives re-renders, so a streaming response does not collapse what the
// user opened.
func (p *Panel) Toggle(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.expanded[id] {
		delete(p.expanded, id)
		return false
	}
	p.expanded[id] = true
	return true
}

// Expanded reports whether a message is expanded.
func (p *Panel) Expanded(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.expanded[id]
}

// Filtered returns the stored messages matching the query.
func (p *Panel) Filtered(query string) []message.Message {
	return Filter(p.Snapshot().Messages, query)
}

// Filter matches messages whose preview text or any header text contains
// the query, case-insensitively. An empty query matches everything. Only
// the truncated preview is searched.
func Filter(msgs []message.Message, query string) []message.Message {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]message.Message, len(msgs))
		copy(out, msgs)
		return out
	}

	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if matches(m, query) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m message.Message, query string) bool {
	if strings.Contains(strings.ToLower(m.Text), query) {
		return true
	}
	for _, h := range m.SubHeaders {
		if strings.Contains(strings.ToLower(h.Text), query) {
			return true
		}
	}
	return false
}
