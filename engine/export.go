package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"

	"github.com/BigYang-Web/dialogue-index/dom"
)

// exporter converts message content nodes to markdown. Snapshots carry
// only a truncated text preview; the exporter re-reads the full content so
// a transcript export loses nothing.
type exporter struct {
	conv *converter.Converter
}

func newExporter() *exporter {
	return &exporter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// ExportMarkdown renders the current conversation as a markdown
// transcript: one section per message, full content, assistant markup
// converted to markdown. Unsupported origins export an empty transcript.
func (e *Engine) ExportMarkdown(ctx context.Context) (string, error) {
	if e.adapter == nil {
		return "", nil
	}

	raw, err := e.src.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("engine: serialize document: %w", err)
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("engine: parse document: %w", err)
	}

	var b strings.Builder
	for _, el := range e.adapter.Messages.QueryAll(doc) {
		assistant := e.isAssistant(el)
		content := e.adapter.Resolve(el, assistant)
		if content == nil {
			continue
		}

		var body string
		if assistant {
			// Assistant bubbles carry rendered markup worth preserving.
			md, err := e.exporter.conv.ConvertString(dom.RenderHTML(content))
			if err != nil {
				e.logger.Debug("engine: markdown conversion failed", "error", err)
				body = dom.VisibleText(content)
			} else {
				body = strings.TrimSpace(md)
			}
		} else {
			body = dom.VisibleText(content)
		}
		if body == "" {
			continue
		}

		role := "User"
		if assistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", role, body)
	}

	return b.String(), nil
}

// isAssistant shields the export path from adapter predicate panics the
// same way extraction is shielded.
func (e *Engine) isAssistant(el *html.Node) (assistant bool) {
	defer func() {
		if recover() != nil {
			assistant = false
		}
	}()
	return e.adapter.IsAssistant(el)
}
