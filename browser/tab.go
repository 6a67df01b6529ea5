package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page on a chat provider. It is the engine's document
// source and scroller: it serializes the live DOM for extraction and
// executes navigation commands against it.
type Tab struct {
	Page    *rod.Page
	PageURL string

	origin    string
	highlight time.Duration
	logger    *slog.Logger
}

// TabOptions tune per-tab behaviour.
type TabOptions struct {
	// Highlight is how long the scroll-target flash stays visible.
	// Default: 1.5s.
	Highlight time.Duration

	Logger *slog.Logger
}

func (o *TabOptions) defaults() {
	if o.Highlight <= 0 {
		o.Highlight = 1500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// OpenTab creates a stealth tab and navigates to the URL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, opts TabOptions) (*Tab, error) {
	opts.defaults()

	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		opts.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{
		Page:      page,
		PageURL:   pageURL,
		origin:    originOf(pageURL),
		highlight: opts.Highlight,
		logger:    opts.Logger,
	}, nil
}

// originOf reduces a URL to the host the adapter registry matches against.
func originOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return pageURL
	}
	return u.Host
}

// Origin returns the page's host.
func (t *Tab) Origin() string {
	return t.origin
}

// HTML serializes the complete live DOM.
func (t *Tab) HTML(ctx context.Context) ([]byte, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: serialize DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
