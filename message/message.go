// Package message defines the normalized conversation types produced by
// extraction. These are the public API contract: any consumer (the side
// panel, MCP clients, custom sinks) imports this package to receive and
// process conversation snapshots.
package message

import "encoding/json"

// Role is the author of a message. Exactly two literal tags exist on the
// wire: "user" and "ai".
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "ai"
)

// HeaderLevel is the heading depth of a section header.
type HeaderLevel string

const (
	LevelH1 HeaderLevel = "h1"
	LevelH2 HeaderLevel = "h2"
	LevelH3 HeaderLevel = "h3"
)

// Header is a section heading inside an assistant message. Its ID is
// derived from the parent message ID plus the heading's ordinal position,
// and is stable across repeated extractions.
type Header struct {
	ID    string      `json:"id"`
	Level HeaderLevel `json:"level"`
	Text  string      `json:"text"`
}

// Message is one conversation bubble. Text is the trimmed visible text of
// the content node, truncated to the preview length. SubHeaders is only
// populated for assistant messages.
type Message struct {
	ID         string   `json:"id"`
	Role       Role     `json:"role"`
	Text       string   `json:"text"`
	SubHeaders []Header `json:"subHeaders"`
}

// Snapshot is the full ordered message sequence as of one extraction pass.
// It is recomputed on every pass and superseded immediately; no history is
// retained.
type Snapshot struct {
	Origin    string    `json:"origin"`
	Messages  []Message `json:"messages"`
	Timestamp int64     `json:"timestamp"` // epoch milliseconds
}

// FingerprintEntry is one (id, text length) pair of a snapshot fingerprint.
type FingerprintEntry struct {
	ID      string
	TextLen int
}

// Fingerprint reduces a message sequence to its change-detection key: the
// ordered (id, text length) pairs. Equal fingerprints mean "not worth
// re-reporting". Text edits that keep the length unchanged are invisible to
// this comparison; that imprecision is the accepted cost of cheap change
// detection on every mutation burst.
func Fingerprint(msgs []Message) []FingerprintEntry {
	fp := make([]FingerprintEntry, len(msgs))
	for i, m := range msgs {
		fp[i] = FingerprintEntry{ID: m.ID, TextLen: len(m.Text)}
	}
	return fp
}

// FingerprintEqual reports whether two fingerprints are identical.
func FingerprintEqual(a, b []FingerprintEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MarshalSnapshot serializes a snapshot to JSON.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot deserializes a snapshot from JSON.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
