package extract

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/BigYang-Web/dialogue-index/dom"
	"github.com/BigYang-Web/dialogue-index/message"
	"github.com/BigYang-Web/dialogue-index/site"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

// classAdapter matches the minimal test markup: div.msg bubbles, assistant
// marked by class "ai", content in an optional .body child.
func classAdapter() *site.Adapter {
	return &site.Adapter{
		Name:     "test",
		Host:     "chat.test",
		Messages: dom.Compile("div.msg"),
		IsAssistant: func(el *html.Node) bool {
			return dom.HasClass(el, "ai")
		},
		ContentNode: func(el *html.Node, assistant bool) *html.Node {
			if body := dom.Compile(".body").Query(el); body != nil {
				return body
			}
			return el
		},
	}
}

func TestExtract_Basic(t *testing.T) {
	doc := parse(t, `<body>
		<div class="msg user">How do I deploy?</div>
		<div class="msg ai"><div class="body"><h2>Plan</h2><p>First, build.</p></div></div>
	</body>`)

	x := New(nil)
	msgs := x.Extract(doc, classAdapter())

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != "msg-0" || msgs[0].Role != message.RoleUser {
		t.Errorf("message 0: got %+v", msgs[0])
	}
	if msgs[0].Text != "How do I deploy?" {
		t.Errorf("message 0 text: got %q", msgs[0].Text)
	}
	if msgs[1].ID != "msg-1" || msgs[1].Role != message.RoleAssistant {
		t.Errorf("message 1: got %+v", msgs[1])
	}
	if len(msgs[1].SubHeaders) != 1 {
		t.Fatalf("message 1 headers: got %d, want 1", len(msgs[1].SubHeaders))
	}
	h := msgs[1].SubHeaders[0]
	if h.ID != "msg-1-h-0" || h.Level != message.LevelH2 || h.Text != "Plan" {
		t.Errorf("header: got %+v", h)
	}
	if len(msgs[0].SubHeaders) != 0 {
		t.Errorf("user message should carry no headers, got %+v", msgs[0].SubHeaders)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	doc := parse(t, `<body>
		<div class="msg user">question</div>
		<div class="msg ai"><div class="body"><h1>A</h1><h3>B</h3>answer</div></div>
	</body>`)

	x := New(nil)
	first := x.Extract(doc, classAdapter())
	second := x.Extract(doc, classAdapter())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestExtract_StableIDsAcrossAppend(t *testing.T) {
	before := parse(t, `<body>
		<div class="msg user">one</div>
		<div class="msg ai"><div class="body">two</div></div>
	</body>`)
	after := parse(t, `<body>
		<div class="msg user">one</div>
		<div class="msg ai"><div class="body">two</div></div>
		<div class="msg user">three</div>
	</body>`)

	x := New(nil)
	first := x.Extract(before, classAdapter())
	second := x.Extract(after, classAdapter())

	if len(first) != 2 || len(second) != 3 {
		t.Fatalf("got %d then %d messages, want 2 then 3", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("message %d re-keyed after append: %q became %q",
				i, first[i].ID, second[i].ID)
		}
	}
	if second[2].ID != "msg-2" {
		t.Errorf("appended message: got id %q, want msg-2", second[2].ID)
	}
}

func TestExtract_EmptyTextDropped(t *testing.T) {
	doc := parse(t, `<body>
		<div class="msg user">   </div>
		<div class="msg ai"><div class="body">answer</div></div>
	</body>`)

	x := New(nil)
	msgs := x.Extract(doc, classAdapter())

	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Text != "answer" {
		t.Errorf("got %q, want the non-empty bubble", msgs[0].Text)
	}
	// The blank bubble still consumed a positional slot.
	if msgs[0].ID != "msg-1" {
		t.Errorf("got id %q, want msg-1", msgs[0].ID)
	}
}

func TestExtract_Truncation(t *testing.T) {
	long := strings.Repeat("x", 250)
	doc := parse(t, `<body><div class="msg user">`+long+`</div></body>`)

	x := New(nil)
	msgs := x.Extract(doc, classAdapter())

	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if got := len(msgs[0].Text); got != PreviewLen {
		t.Errorf("text length: got %d, want %d", got, PreviewLen)
	}
}

func TestExtract_HeaderHashStripped(t *testing.T) {
	doc := parse(t, `<body>
		<div class="msg ai"><div class="body"><h2># Setup #</h2>text</div></div>
	</body>`)

	x := New(nil)
	msgs := x.Extract(doc, classAdapter())

	if len(msgs) != 1 || len(msgs[0].SubHeaders) != 1 {
		t.Fatalf("got %+v", msgs)
	}
	if got := msgs[0].SubHeaders[0].Text; got != "Setup" {
		t.Errorf("header text: got %q, want %q", got, "Setup")
	}
}

func TestExtract_PanicContained(t *testing.T) {
	doc := parse(t, `<body>
		<div class="msg boom">bad</div>
		<div class="msg user">good</div>
	</body>`)

	a := classAdapter()
	a.IsAssistant = func(el *html.Node) bool {
		if dom.HasClass(el, "boom") {
			panic("markup drift")
		}
		return false
	}

	x := New(nil)
	msgs := x.Extract(doc, a)

	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 survivor", len(msgs))
	}
	if msgs[0].Text != "good" {
		t.Errorf("got %q, want the surviving bubble", msgs[0].Text)
	}
}

func TestExtract_HonorsExistingAnchor(t *testing.T) {
	doc := parse(t, `<body>
		<div class="msg user" data-nav-id="msg-7">stamped</div>
	</body>`)

	x := New(nil)
	msgs := x.Extract(doc, classAdapter())

	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].ID != "msg-7" {
		t.Errorf("got id %q, want the stamped msg-7", msgs[0].ID)
	}
	if _, ok := x.Anchors().Locate("msg-7"); !ok {
		t.Error("stamped anchor should be locatable")
	}
}

func TestExtract_NilInputs(t *testing.T) {
	x := New(nil)
	if got := x.Extract(nil, classAdapter()); got != nil {
		t.Errorf("nil document: got %+v, want nil", got)
	}
	doc := parse(t, `<body></body>`)
	if got := x.Extract(doc, nil); got != nil {
		t.Errorf("nil adapter: got %+v, want nil", got)
	}
}

func TestAnchors_FirstSightWins(t *testing.T) {
	an := NewAnchors()

	if got := an.Assign("/html[1]/body[1]/div[1]", "msg-0"); got != "msg-0" {
		t.Fatalf("first assign: got %q", got)
	}
	// Later candidates for the same path never override the first.
	if got := an.Assign("/html[1]/body[1]/div[1]", "msg-5"); got != "msg-0" {
		t.Errorf("re-assign: got %q, want msg-0", got)
	}

	path, ok := an.Locate("msg-0")
	if !ok || path != "/html[1]/body[1]/div[1]" {
		t.Errorf("Locate: got %q, %v", path, ok)
	}
	if _, ok := an.Locate("msg-5"); ok {
		t.Error("unassigned id should not locate")
	}
	if got := an.Len(); got != 1 {
		t.Errorf("Len: got %d, want 1", got)
	}
}
