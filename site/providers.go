package site

import (
	"golang.org/x/net/html"

	"github.com/BigYang-Web/dialogue-index/dom"
)

// Builtin returns the registry of known chat providers. Order matters only
// for overlapping hosts; these six do not overlap. Provider markup changes
// without notice — every selector here is best-effort, and a miss degrades
// to an empty or partial outline rather than a failure.
func Builtin() *Registry {
	return NewRegistry(
		doubao(),
		qianwen(),
		deepseek(),
		yuanbao(),
		gemini(),
		chatgpt(),
	)
}

func doubao() *Adapter {
	return &Adapter{
		Name:     "doubao",
		Host:     "doubao.com",
		Messages: dom.Compile(`div[data-testid="message_text_content"]`),
		IsAssistant: func(el *html.Node) bool {
			return dom.HasClass(el, "container-P2rR72")
		},
	}
}

func qianwen() *Adapter {
	aiContent := dom.Compile(".qk-markdown")
	userContent := dom.Compile(`[class*="content-"]`)
	userBubble := dom.Compile(".bubble-uo23is")
	return &Adapter{
		Name:     "qianwen",
		Host:     "qianwen.com",
		Messages: dom.Compile(`div[class*="questionItem-"], div[class*="answerItem-"]`),
		IsAssistant: func(el *html.Node) bool {
			return dom.ClassContains(el, "answerItem-")
		},
		ContentNode: func(el *html.Node, assistant bool) *html.Node {
			if assistant {
				return aiContent.Query(el)
			}
			if n := userContent.Query(el); n != nil {
				return n
			}
			return userBubble.Query(el)
		},
	}
}

func deepseek() *Adapter {
	return &Adapter{
		Name:     "deepseek",
		Host:     "deepseek.com",
		Messages: dom.Compile(".ds-markdown, .fbb737a4"),
		IsAssistant: func(el *html.Node) bool {
			return dom.HasClass(el, "ds-markdown") || dom.Closest(el, ".ds-markdown") != nil
		},
	}
}

func yuanbao() *Adapter {
	aiContent := dom.Compile(".hyc-common-markdown")
	userContent := dom.Compile(".hyc-content-text")
	return &Adapter{
		Name:     "yuanbao",
		Host:     "yuanbao.tencent.com",
		Messages: dom.Compile(".agent-chat__list__item"),
		IsAssistant: func(el *html.Node) bool {
			return dom.HasClass(el, "agent-chat__list__item--ai")
		},
		ContentNode: func(el *html.Node, assistant bool) *html.Node {
			if assistant {
				return aiContent.Query(el)
			}
			return userContent.Query(el)
		},
	}
}

func gemini() *Adapter {
	// Gemini reshuffles class names often; try the known candidates and
	// fall back to the bubble itself.
	aiCandidates := []dom.Selector{
		dom.Compile(".message-content"),
		dom.Compile(".markdown"),
		dom.Compile(".model-response-text"),
	}
	userContent := dom.Compile(".query-text")
	return &Adapter{
		Name:     "gemini",
		Host:     "gemini.google.com",
		Messages: dom.Compile("model-response, .query-text-container, .query-text, .user-query-content"),
		IsAssistant: func(el *html.Node) bool {
			return el.Data == "model-response"
		},
		ContentNode: func(el *html.Node, assistant bool) *html.Node {
			if assistant {
				for _, sel := range aiCandidates {
					if n := sel.Query(el); n != nil {
						return n
					}
				}
				return el
			}
			if n := userContent.Query(el); n != nil {
				return n
			}
			return el
		},
	}
}

func chatgpt() *Adapter {
	assistantMarker := dom.Compile(`[data-message-author-role="assistant"]`)
	aiContent := dom.Compile(".markdown")
	return &Adapter{
		Name:     "chatgpt",
		Host:     "chatgpt.com",
		Messages: dom.Compile("article"),
		IsAssistant: func(el *html.Node) bool {
			return assistantMarker.Query(el) != nil
		},
		ContentNode: func(el *html.Node, assistant bool) *html.Node {
			if assistant {
				if n := aiContent.Query(el); n != nil {
					return n
				}
			}
			return el
		},
	}
}
