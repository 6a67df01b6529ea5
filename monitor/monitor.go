// Package monitor decides when to re-run extraction and whether the result
// is worth reporting. It is a small state machine per document lifetime —
// Idle → PendingRun → Idle — driven by four triggers: DOM mutation bursts,
// visibility transitions to foreground, client-side navigation, and
// explicit snapshot requests.
//
// Mutation triggers are debounced: streaming responses mutate the DOM
// token by token, and one extraction pass per quiet interval bounds CPU
// cost to a fraction of mutation frequency regardless of page verbosity.
// All extraction passes run on the monitor's single goroutine, so no two
// passes ever overlap.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BigYang-Web/dialogue-index/message"
)

// DefaultDebounce is the quiet interval after the last mutation before an
// extraction pass runs.
const DefaultDebounce = 500 * time.Millisecond

// ExtractFunc computes a fresh snapshot of the observed document.
type ExtractFunc func(ctx context.Context) (message.Snapshot, error)

// Config for creating a Monitor.
type Config struct {
	Extract  ExtractFunc
	Sink     Sink
	Debounce time.Duration
	Logger   *slog.Logger
}

type snapshotRequest struct {
	reply chan snapshotReply
}

type snapshotReply struct {
	snap message.Snapshot
	err  error
}

// Monitor owns the debounce timer, the last emitted fingerprint, and the
// loop goroutine. Create one per document session.
type Monitor struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	mutationCh   chan struct{}
	foregroundCh chan struct{}
	navigateCh   chan struct{}
	requestCh    chan snapshotRequest

	started atomic.Bool

	// lastFP is the fingerprint of the last emitted snapshot. Touched only
	// by the loop goroutine.
	lastFP []message.FingerprintEntry

	// runs counts completed extraction passes, for observability.
	runs atomic.Int64
}

// New creates a Monitor. Call Start to begin observing.
func New(cfg Config) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Monitor{
		cfg:          cfg,
		mutationCh:   make(chan struct{}, 1),
		foregroundCh: make(chan struct{}, 1),
		navigateCh:   make(chan struct{}, 1),
		requestCh:    make(chan snapshotRequest),
	}
}

// Start launches the loop goroutine. Starting an already-started monitor is
// a no-op: activation must be idempotent.
func (m *Monitor) Start(ctx context.Context) error {
	if m.cfg.Extract == nil {
		return fmt.Errorf("monitor: no extract function configured")
	}
	if !m.started.CompareAndSwap(false, true) {
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	go m.loop()
	return nil
}

// Stop terminates the loop. Pending debounce timers are discarded.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Runs returns the number of completed extraction passes.
func (m *Monitor) Runs() int64 {
	return m.runs.Load()
}

// NotifyMutation signals that the document mutated. Safe to call from any
// goroutine at any rate; bursts coalesce into one pending run.
func (m *Monitor) NotifyMutation() {
	signal(m.mutationCh)
}

// NotifyForeground signals a visibility transition to foreground. Forces an
// immediate extraction pass, bypassing the debounce.
func (m *Monitor) NotifyForeground() {
	signal(m.foregroundCh)
}

// NotifyNavigation signals a client-side navigation (history change). The
// new view needs a settle interval before it is worth reading, so this
// restarts the debounce window like a mutation burst would.
func (m *Monitor) NotifyNavigation() {
	signal(m.navigateCh)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Snapshot computes a snapshot on demand, independent of debounce state.
// The pass runs on the loop goroutine, preserving the no-overlap guarantee.
// The stored fingerprint is left untouched and nothing is emitted.
func (m *Monitor) Snapshot(ctx context.Context) (message.Snapshot, error) {
	if !m.started.Load() {
		return message.Snapshot{}, fmt.Errorf("monitor: not started")
	}
	req := snapshotRequest{reply: make(chan snapshotReply, 1)}
	select {
	case m.requestCh <- req:
	case <-ctx.Done():
		return message.Snapshot{}, ctx.Err()
	case <-m.ctx.Done():
		return message.Snapshot{}, fmt.Errorf("monitor: stopped")
	}
	select {
	case rep := <-req.reply:
		return rep.snap, rep.err
	case <-ctx.Done():
		return message.Snapshot{}, ctx.Err()
	}
}

// loop is the state machine. A nil timer channel means Idle; an armed one
// means PendingRun.
func (m *Monitor) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	arm := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(m.cfg.Debounce)
		timerC = timer.C
	}
	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-m.ctx.Done():
			disarm()
			return

		case <-m.mutationCh:
			arm()

		case <-m.navigateCh:
			arm()

		case <-timerC:
			timer = nil
			timerC = nil
			m.run()

		case <-m.foregroundCh:
			// The page just became visible; pending mutations are covered
			// by this pass, so the window is discarded.
			disarm()
			m.run()

		case req := <-m.requestCh:
			snap, err := m.extract()
			req.reply <- snapshotReply{snap: snap, err: err}
		}
	}
}

// run extracts, fingerprints, and emits only when the fingerprint moved.
// Cosmetic-only mutations (attribute churn, equal-length text edits) are
// suppressed here, so consumers never re-render for nothing.
func (m *Monitor) run() {
	snap, err := m.extract()
	if err != nil {
		m.cfg.Logger.Warn("monitor: extraction failed", "error", err)
		return
	}

	fp := message.Fingerprint(snap.Messages)
	if message.FingerprintEqual(fp, m.lastFP) {
		return
	}
	m.lastFP = fp

	if m.cfg.Sink == nil {
		return
	}
	if err := m.cfg.Sink.SendSnapshot(m.ctx, snap); err != nil {
		// Consumer gone is normal; the next trigger retries naturally.
		m.cfg.Logger.Debug("monitor: emit failed", "error", err)
	}
}

func (m *Monitor) extract() (message.Snapshot, error) {
	snap, err := m.cfg.Extract(m.ctx)
	if err != nil {
		return message.Snapshot{}, err
	}
	m.runs.Add(1)
	return snap, nil
}
