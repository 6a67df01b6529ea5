package monitor

import (
	"context"
	"log/slog"

	"github.com/BigYang-Web/dialogue-index/message"
)

// Sink receives snapshot-changed events. Implementations deliver them to
// consumers (the side panel, MCP notifications, custom pipelines). Delivery
// is at-most-once: a failed send is logged and dropped, never retried — the
// consumer may simply be absent, and the next natural trigger will carry
// fresher data anyway.
type Sink interface {
	SendSnapshot(ctx context.Context, snap message.Snapshot) error
	Close() error
}

// SnapshotFunc adapts a plain function into a Sink. This is the in-process
// consumer path: zero serialization, one function call per emission.
type SnapshotFunc func(ctx context.Context, snap message.Snapshot) error

func (f SnapshotFunc) SendSnapshot(ctx context.Context, snap message.Snapshot) error {
	return f(ctx, snap)
}

func (f SnapshotFunc) Close() error { return nil }

// Router fans out snapshots to all configured sinks. One sink failing does
// not block the others; errors are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) SendSnapshot(ctx context.Context, snap message.Snapshot) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendSnapshot(ctx, snap); err != nil {
			r.logger.Warn("sink: send snapshot failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
