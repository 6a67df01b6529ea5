package panel

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BigYang-Web/dialogue-index/message"
)

//go:embed static
var staticFS embed.FS

// Controller is the engine surface the panel drives: the command channel
// plus origin metadata.
type Controller interface {
	Snapshot(ctx context.Context) (message.Snapshot, error)
	ScrollToAnchor(ctx context.Context, id string) bool
	ExportMarkdown(ctx context.Context) (string, error)
	Supported() bool
	Origin() string
}

// Server exposes the panel over HTTP.
type Server struct {
	panel *Panel
	ctrl  Controller
}

// NewServer creates a panel HTTP server.
func NewServer(p *Panel, ctrl Controller) *Server {
	return &Server{panel: p, ctrl: ctrl}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex)
	r.Get("/api/messages", s.handleMessages)
	r.Post("/api/scroll", s.handleScroll)
	r.Post("/api/toggle", s.handleToggle)
	r.Get("/api/export", s.handleExport)
	r.Get("/events", s.handleEvents)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	f, err := staticFS.Open("static/index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	io.Copy(w, f)
}

// messageView is a list entry with its fold state resolved, so the client
// re-renders without losing what the user opened.
type messageView struct {
	message.Message
	Expanded bool `json:"expanded"`
}

type messagesResponse struct {
	Origin    string        `json:"origin"`
	Supported bool          `json:"supported"`
	Messages  []messageView `json:"messages"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	// Pull a fresh snapshot when the panel has nothing yet (first open
	// races the first emission).
	if len(s.panel.Snapshot().Messages) == 0 {
		if snap, err := s.ctrl.Snapshot(r.Context()); err == nil {
			s.panel.SendSnapshot(r.Context(), snap)
		}
	}

	filtered := s.panel.Filtered(r.URL.Query().Get("q"))
	views := make([]messageView, 0, len(filtered))
	for _, m := range filtered {
		views = append(views, messageView{
			Message:  m,
			Expanded: s.panel.Expanded(m.ID),
		})
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		Origin:    s.ctrl.Origin(),
		Supported: s.ctrl.Supported(),
		Messages:  views,
	})
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}
	ok := s.ctrl.ScrollToAnchor(r.Context(), req.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"expanded": s.panel.Toggle(req.ID)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	md, err := s.ctrl.ExportMarkdown(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="conversation.md"`)
	io.WriteString(w, md)
}

// handleEvents streams snapshot-changed pushes as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.panel.Subscribe()
	defer cancel()

	// Prime the stream with current state.
	if snap := s.panel.Snapshot(); snap.Timestamp != 0 {
		writeEvent(w, snap)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-ch:
			if !open {
				return
			}
			writeEvent(w, snap)
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, snap message.Snapshot) {
	data, err := message.MarshalSnapshot(&snap)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
