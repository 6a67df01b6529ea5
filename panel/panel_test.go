package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BigYang-Web/dialogue-index/message"
)

func testSnapshot() message.Snapshot {
	return message.Snapshot{
		Origin: "chat.test",
		Messages: []message.Message{
			{ID: "msg-0", Role: message.RoleUser, Text: "How do I deploy?"},
			{
				ID:   "msg-1",
				Role: message.RoleAssistant,
				Text: "Use the pipeline.",
				SubHeaders: []message.Header{
					{ID: "msg-1-h-0", Level: message.LevelH2, Text: "Deployment Steps"},
				},
			},
		},
		Timestamp: 1767225600000,
	}
}

func TestFilter(t *testing.T) {
	msgs := testSnapshot().Messages

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"msg-0", "msg-1"}},
		{"DEPLOY", []string{"msg-0", "msg-1"}}, // text match and header match
		{"pipeline", []string{"msg-1"}},
		{"deployment steps", []string{"msg-1"}}, // header-only match
		{"kubernetes", nil},
	}

	for _, tc := range cases {
		got := Filter(msgs, tc.query)
		ids := make([]string, len(got))
		for i, m := range got {
			ids[i] = m.ID
		}
		if len(ids) != len(tc.want) {
			t.Errorf("Filter(%q): got %v, want %v", tc.query, ids, tc.want)
			continue
		}
		for i := range ids {
			if ids[i] != tc.want[i] {
				t.Errorf("Filter(%q): got %v, want %v", tc.query, ids, tc.want)
				break
			}
		}
	}
}

func TestPanel_ToggleSurvivesSnapshots(t *testing.T) {
	p := New(nil)

	if !p.Toggle("msg-1") {
		t.Fatal("first toggle should expand")
	}
	if err := p.SendSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatal(err)
	}
	if !p.Expanded("msg-1") {
		t.Error("fold state lost across snapshot update")
	}
	if p.Toggle("msg-1") {
		t.Error("second toggle should collapse")
	}
}

func TestPanel_SanitizesText(t *testing.T) {
	p := New(nil)
	snap := message.Snapshot{
		Messages: []message.Message{
			{ID: "msg-0", Role: message.RoleUser, Text: `<img src=x onerror=alert(1)>hello`},
		},
	}
	if err := p.SendSnapshot(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	got := p.Snapshot().Messages[0].Text
	if strings.Contains(got, "<") {
		t.Errorf("markup survived sanitization: %q", got)
	}
	if !strings.Contains(got, "hello") {
		t.Errorf("text content lost: %q", got)
	}
}

func TestPanel_Subscribe(t *testing.T) {
	p := New(nil)
	ch, cancel := p.Subscribe()
	defer cancel()

	if err := p.SendSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatal(err)
	}
	select {
	case snap := <-ch:
		if snap.Origin != "chat.test" {
			t.Errorf("got origin %q", snap.Origin)
		}
	default:
		t.Error("subscriber received nothing")
	}
}

func TestPanel_CloseDuringSend(t *testing.T) {
	p := New(nil)
	for i := 0; i < 16; i++ {
		ch, _ := p.Subscribe()
		// Unbuffered reads never happen; every send takes the drop path.
		_ = ch
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			if err := p.SendSnapshot(context.Background(), testSnapshot()); err != nil {
				t.Errorf("SendSnapshot: %v", err)
				return
			}
		}
	}()

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	<-done

	// Shutdown is final: later sends are dropped, later subscribers get a
	// closed channel immediately.
	if err := p.SendSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatal(err)
	}
	ch, cancel := p.Subscribe()
	defer cancel()
	if _, open := <-ch; open {
		t.Error("subscribing after Close should yield a closed channel")
	}
}

// stubController serves canned responses for the HTTP handlers.
type stubController struct {
	snap      message.Snapshot
	scrollOK  bool
	scrolled  string
	markdown  string
	supported bool
}

func (c *stubController) Snapshot(context.Context) (message.Snapshot, error) { return c.snap, nil }
func (c *stubController) ScrollToAnchor(_ context.Context, id string) bool {
	c.scrolled = id
	return c.scrollOK
}
func (c *stubController) ExportMarkdown(context.Context) (string, error) { return c.markdown, nil }
func (c *stubController) Supported() bool                                { return c.supported }
func (c *stubController) Origin() string                                 { return "chat.test" }

func newTestServer(t *testing.T, ctrl *stubController) (*Panel, http.Handler) {
	t.Helper()
	p := New(nil)
	return p, NewServer(p, ctrl).Handler()
}

func TestServer_Messages(t *testing.T) {
	ctrl := &stubController{snap: testSnapshot(), supported: true}
	p, h := newTestServer(t, ctrl)
	p.Toggle("msg-1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/messages", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var resp struct {
		Origin    string `json:"origin"`
		Supported bool   `json:"supported"`
		Messages  []struct {
			ID       string `json:"id"`
			Expanded bool   `json:"expanded"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Origin != "chat.test" || !resp.Supported {
		t.Errorf("got origin=%q supported=%v", resp.Origin, resp.Supported)
	}
	// The empty panel lazily pulled the controller snapshot.
	if len(resp.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(resp.Messages))
	}
	if resp.Messages[0].Expanded || !resp.Messages[1].Expanded {
		t.Errorf("fold states: got %v/%v, want false/true",
			resp.Messages[0].Expanded, resp.Messages[1].Expanded)
	}
}

func TestServer_MessagesFiltered(t *testing.T) {
	ctrl := &stubController{snap: testSnapshot(), supported: true}
	_, h := newTestServer(t, ctrl)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/messages?q=pipeline", nil))

	var resp struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 1 {
		t.Errorf("filtered: got %d messages, want 1", len(resp.Messages))
	}
}

func TestServer_Scroll(t *testing.T) {
	ctrl := &stubController{scrollOK: true}
	_, h := newTestServer(t, ctrl)

	body := bytes.NewBufferString(`{"id":"msg-1"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scroll", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp["success"] {
		t.Error("success: got false, want true")
	}
	if ctrl.scrolled != "msg-1" {
		t.Errorf("scrolled id: got %q", ctrl.scrolled)
	}
}

func TestServer_ScrollMissingAnchor(t *testing.T) {
	ctrl := &stubController{scrollOK: false}
	_, h := newTestServer(t, ctrl)

	body := bytes.NewBufferString(`{"id":"msg-99"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scroll", body))

	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["success"] {
		t.Error("missing anchor should report success=false")
	}
}

func TestServer_ScrollBadRequest(t *testing.T) {
	_, h := newTestServer(t, &stubController{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scroll", bytes.NewBufferString(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServer_Export(t *testing.T) {
	ctrl := &stubController{markdown: "## User\n\nhello\n"}
	_, h := newTestServer(t, ctrl)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/markdown") {
		t.Errorf("content type: got %q", ct)
	}
	if rec.Body.String() != ctrl.markdown {
		t.Errorf("body: got %q", rec.Body.String())
	}
}
