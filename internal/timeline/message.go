package timeline

import (
	"errors"
	"time"
)

// Kind tags the message payload variant.
type Kind string

const (
	KindText Kind = "text"
	KindCode Kind = "code"
	KindFile Kind = "file"
)

// State is the lifecycle state of a timeline entry.
type State string

const (
	StatePending   State = "pending" // optimistic, unconfirmed
	StateConfirmed State = "confirmed"
	StateEdited    State = "edited"
	StateDeleted   State = "deleted"
)

// Reaction is one (user, emoji) pair. Pairs are unique per message.
type Reaction struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// FileInfo is the payload of a file message.
type FileInfo struct {
	URL  string `json:"url"`
	Mime string `json:"mime"`
	Name string `json:"name"`
}

// Message is a timeline entry. ID is server-assigned and absent until
// confirmation; ClientEchoID is set only on locally authored messages.
type Message struct {
	ID           string     `json:"id,omitempty"`
	ClientEchoID string     `json:"client_echo_id,omitempty"`
	ChannelID    string     `json:"channel_id"`
	AuthorID     string     `json:"author_id"`
	AuthorName   string     `json:"author_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Kind         Kind       `json:"kind"`
	Text         string     `json:"text,omitempty"`
	Language     string     `json:"language,omitempty"`
	File         *FileInfo  `json:"file,omitempty"`
	ReplyToID    string     `json:"reply_to_id,omitempty"`
	Reactions    []Reaction `json:"reactions,omitempty"`
	State        State      `json:"state,omitempty"`
}

// SamePayload reports whether two messages carry an identical kind-specific
// payload. Used by the legacy fallback match during reconciliation.
func (m *Message) SamePayload(other *Message) bool {
	if m.Kind != other.Kind {
		return false
	}
	switch m.Kind {
	case KindCode:
		return m.Text == other.Text && m.Language == other.Language
	case KindFile:
		if m.File == nil || other.File == nil {
			return m.File == other.File
		}
		return m.File.Name == other.File.Name && m.File.Mime == other.File.Mime
	default:
		return m.Text == other.Text
	}
}

// Patch is the partial update applied by a message_edited event.
type Patch struct {
	Text     *string `json:"text,omitempty"`
	Language *string `json:"language,omitempty"`
}

// Draft is a locally composed message before it enters the timeline.
type Draft struct {
	Kind       Kind
	Text       string
	Language   string
	ReplyToID  string
	Attachment *Attachment
}

// Attachment is a not-yet-uploaded file carried by a draft.
type Attachment struct {
	Name    string
	Mime    string
	Content []byte
}

var ErrEmptyDraft = errors.New("draft must have non-empty text or an attachment")

// Validate enforces the append constraint for local drafts.
func (d Draft) Validate() error {
	if d.Text == "" && d.Attachment == nil {
		return ErrEmptyDraft
	}
	return nil
}
