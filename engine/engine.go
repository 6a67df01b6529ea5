// Package engine wires a document source, the site adapter registry, the
// extractor, and the change monitor into one conversation-indexing engine,
// and exposes the command channel consumers talk to: snapshot-now,
// scroll-to-anchor, and pushed snapshot-changed events.
//
// One Engine lives per observed document. It must never take the host page
// down with it: an unsupported origin, a markup miss, or a vanished
// consumer all degrade to empty or partial data and a best-effort retry on
// the next natural trigger.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/BigYang-Web/dialogue-index/extract"
	"github.com/BigYang-Web/dialogue-index/message"
	"github.com/BigYang-Web/dialogue-index/monitor"
	"github.com/BigYang-Web/dialogue-index/site"
)

// Source is a live document: something that can report its origin and
// serialize its current DOM.
type Source interface {
	Origin() string
	HTML(ctx context.Context) ([]byte, error)
}

// Scroller brings an anchored element into view in the live document and
// applies the transient highlight. id is the stamped anchor; path is the
// structural fallback locator from the identity map, possibly empty.
type Scroller interface {
	ScrollToAnchor(ctx context.Context, id, path string) (bool, error)
}

// Options configure an Engine.
type Options struct {
	Source   Source
	Scroller Scroller // optional; nil disables scroll commands
	Registry *site.Registry
	Sinks    []monitor.Sink
	Debounce time.Duration
	Logger   *slog.Logger
}

// Engine is the per-document orchestrator.
type Engine struct {
	src      Source
	scroller Scroller
	adapter  *site.Adapter
	x        *extract.Extractor
	mon      *monitor.Monitor
	sink     *monitor.Router
	exporter *exporter
	logger   *slog.Logger
	started  atomic.Bool
}

// New creates an Engine. The registry defaults to the built-in provider
// table. The adapter is resolved once from the source origin; no adapter
// means every snapshot is empty, which the consumer surfaces as the
// unsupported-site tip.
func New(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("engine: source is required")
	}
	if opts.Registry == nil {
		opts.Registry = site.Builtin()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Engine{
		src:      opts.Source,
		scroller: opts.Scroller,
		adapter:  opts.Registry.Resolve(opts.Source.Origin()),
		x:        extract.New(opts.Logger),
		sink:     monitor.NewRouter(opts.Logger, opts.Sinks...),
		exporter: newExporter(),
		logger:   opts.Logger,
	}

	e.mon = monitor.New(monitor.Config{
		Extract:  e.extractSnapshot,
		Sink:     e.sink,
		Debounce: opts.Debounce,
		Logger:   opts.Logger,
	})

	if e.adapter == nil {
		opts.Logger.Info("engine: unsupported origin, snapshots will be empty",
			"origin", opts.Source.Origin())
	} else {
		opts.Logger.Info("engine: adapter resolved",
			"origin", opts.Source.Origin(), "site", e.adapter.Name)
	}

	return e, nil
}

// Start begins monitoring. Re-invocation is a no-op; activation happens
// exactly once per document load.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return nil
	}
	return e.mon.Start(ctx)
}

// Stop shuts down the monitor and closes the sinks.
func (e *Engine) Stop() {
	e.mon.Stop()
	if err := e.sink.Close(); err != nil {
		e.logger.Warn("engine: close sinks", "error", err)
	}
}

// Supported reports whether an adapter claimed the source origin.
func (e *Engine) Supported() bool {
	return e.adapter != nil
}

// Origin returns the observed document's origin.
func (e *Engine) Origin() string {
	return e.src.Origin()
}

// Snapshot computes a snapshot on demand, bypassing the debounce.
func (e *Engine) Snapshot(ctx context.Context) (message.Snapshot, error) {
	return e.mon.Snapshot(ctx)
}

// ScrollToAnchor scrolls the element bearing the anchor into the viewport
// and flashes a highlight. False means the anchor is gone — an expected
// race with the host page, not an error.
func (e *Engine) ScrollToAnchor(ctx context.Context, id string) bool {
	if e.scroller == nil {
		return false
	}
	path, _ := e.x.Anchors().Locate(id)
	ok, err := e.scroller.ScrollToAnchor(ctx, id, path)
	if err != nil {
		e.logger.Debug("engine: scroll failed", "id", id, "error", err)
		return false
	}
	return ok
}

// NotifyMutation forwards a DOM mutation signal to the monitor.
func (e *Engine) NotifyMutation() { e.mon.NotifyMutation() }

// NotifyForeground forwards a visibility-to-foreground signal.
func (e *Engine) NotifyForeground() { e.mon.NotifyForeground() }

// NotifyNavigation forwards a client-side navigation signal.
func (e *Engine) NotifyNavigation() { e.mon.NotifyNavigation() }

// extractSnapshot is the monitor's extraction pass: serialize the live DOM,
// parse, extract. Runs on the monitor goroutine only.
func (e *Engine) extractSnapshot(ctx context.Context) (message.Snapshot, error) {
	snap := message.Snapshot{
		Origin:    e.src.Origin(),
		Messages:  []message.Message{},
		Timestamp: time.Now().UnixMilli(),
	}
	if e.adapter == nil {
		return snap, nil
	}

	raw, err := e.src.HTML(ctx)
	if err != nil {
		return snap, fmt.Errorf("engine: serialize document: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return snap, fmt.Errorf("engine: parse document: %w", err)
	}

	snap.Messages = e.x.Extract(doc, e.adapter)
	return snap, nil
}
