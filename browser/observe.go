package browser

import (
	"context"
	_ "embed"
	"encoding/json"

	"github.com/go-rod/rod/lib/proto"
)

//go:embed observer.js
var observerJS string

// bindingName is the JS → Go bridge the injected observer reports through.
const bindingName = "__dialogue_index"

// Signals are the engine-side receivers for page events. Any handler may be
// nil.
type Signals struct {
	OnMutation   func()
	OnForeground func()
	OnNavigation func(newURL string)
}

// Observe injects the mutation observer into the tab and routes its signals
// to the handlers. Injection is idempotent on both sides: the binding add
// tolerates an existing binding, and the script guards against running
// twice. The script is also registered for future document loads, so the
// observer survives full page reloads.
func (t *Tab) Observe(ctx context.Context, sig Signals) error {
	if err := (proto.RuntimeAddBinding{Name: bindingName}.Call(t.Page)); err != nil {
		t.logger.Warn("browser: add binding failed (may already exist)", "error", err)
	}

	go t.listenBinding(ctx, sig)

	if _, err := t.Page.EvalOnNewDocument(observerJS); err != nil {
		t.logger.Warn("browser: register observer for future loads", "error", err)
	}
	if _, err := t.Page.Context(ctx).Eval(observerJS); err != nil {
		return err
	}

	t.logger.Debug("browser: observer injected", "url", t.PageURL)
	return nil
}

// listenBinding receives observer reports via Runtime.bindingCalled.
func (t *Tab) listenBinding(ctx context.Context, sig Signals) {
	t.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		var report struct {
			Kind  string `json:"kind"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &report); err != nil {
			t.logger.Warn("browser: parse observer report", "error", err)
			return
		}

		switch report.Kind {
		case "mutate":
			if sig.OnMutation != nil {
				sig.OnMutation()
			}
		case "visible":
			if sig.OnForeground != nil {
				sig.OnForeground()
			}
		case "navigate":
			if report.Value != "" {
				t.PageURL = report.Value
			}
			if sig.OnNavigation != nil {
				sig.OnNavigation(report.Value)
			}
		}
	})()
}
