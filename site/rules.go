package site

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/BigYang-Web/dialogue-index/dom"
)

// Rule is a declarative adapter definition, loadable from YAML. It covers
// providers whose role classification is expressible as selector rules,
// which in practice is all of them: a class, a class substring, a tag, or a
// descendant marker.
type Rule struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`

	// MessageSelector enumerates conversation bubbles.
	MessageSelector string `yaml:"message_selector"`

	// Exactly one assistant marker should be set. When several are set, any
	// match classifies the bubble as assistant.
	AssistantClass         string `yaml:"assistant_class,omitempty"`
	AssistantClassContains string `yaml:"assistant_class_contains,omitempty"`
	AssistantTag           string `yaml:"assistant_tag,omitempty"`
	AssistantSelector      string `yaml:"assistant_selector,omitempty"`

	// Optional content-node selectors per role. Empty means the bubble
	// itself is the content node.
	AssistantContent string `yaml:"assistant_content,omitempty"`
	UserContent      string `yaml:"user_content,omitempty"`
}

// Compile turns a rule into an Adapter.
func (r Rule) Compile() (*Adapter, error) {
	if r.Host == "" {
		return nil, fmt.Errorf("site: rule %q: host is required", r.Name)
	}
	if r.MessageSelector == "" {
		return nil, fmt.Errorf("site: rule %q: message_selector is required", r.Name)
	}
	if r.AssistantClass == "" && r.AssistantClassContains == "" &&
		r.AssistantTag == "" && r.AssistantSelector == "" {
		return nil, fmt.Errorf("site: rule %q: no assistant marker", r.Name)
	}

	var marker dom.Selector
	if r.AssistantSelector != "" {
		marker = dom.Compile(r.AssistantSelector)
	}

	a := &Adapter{
		Name:     r.Name,
		Host:     r.Host,
		Messages: dom.Compile(r.MessageSelector),
		IsAssistant: func(el *html.Node) bool {
			if r.AssistantClass != "" && dom.HasClass(el, r.AssistantClass) {
				return true
			}
			if r.AssistantClassContains != "" && dom.ClassContains(el, r.AssistantClassContains) {
				return true
			}
			if r.AssistantTag != "" && el.Data == r.AssistantTag {
				return true
			}
			if r.AssistantSelector != "" && marker.Query(el) != nil {
				return true
			}
			return false
		},
	}

	if r.AssistantContent != "" || r.UserContent != "" {
		aiSel := dom.Compile(r.AssistantContent)
		userSel := dom.Compile(r.UserContent)
		a.ContentNode = func(el *html.Node, assistant bool) *html.Node {
			if assistant {
				if r.AssistantContent == "" {
					return el
				}
				return aiSel.Query(el)
			}
			if r.UserContent == "" {
				return el
			}
			return userSel.Query(el)
		}
	}

	return a, nil
}

// CompileRules compiles a rule list, skipping invalid entries. The first
// error encountered is returned alongside the adapters that did compile;
// a bad custom rule must not take down the built-in table.
func CompileRules(rules []Rule) ([]*Adapter, error) {
	var adapters []*Adapter
	var firstErr error
	for _, r := range rules {
		a, err := r.Compile()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		adapters = append(adapters, a)
	}
	return adapters, firstErr
}
