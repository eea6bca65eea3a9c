package session

import (
	"bytes"
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"coursechat/internal/common"
	"coursechat/internal/event"
	"coursechat/internal/timeline"
)

// SendDraft appends an optimistic entry and emits the send event. When
// the draft carries an attachment the upload is awaited asynchronously
// before the emit; the entry shows as pending meanwhile.
func (s *Session) SendDraft(ctx context.Context, draft timeline.Draft) (*timeline.Message, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.channelID == "" {
		s.mu.Unlock()
		return nil, ErrNoChannel
	}

	kind := draft.Kind
	if kind == "" {
		switch {
		case draft.Attachment != nil:
			kind = timeline.KindFile
		case draft.Language != "":
			kind = timeline.KindCode
		default:
			kind = timeline.KindText
		}
	}

	msg := &timeline.Message{
		ClientEchoID: uuid.NewString(),
		ChannelID:    s.channelID,
		AuthorID:     s.user.ID,
		AuthorName:   s.user.DisplayName,
		CreatedAt:    time.Now().UTC(),
		Kind:         kind,
		Text:         draft.Text,
		Language:     draft.Language,
		ReplyToID:    draft.ReplyToID,
	}
	s.store.AppendPending(msg)
	epoch := s.epoch
	channelID := s.channelID
	client := s.client
	s.mu.Unlock()

	if draft.Attachment == nil {
		return msg, client.Emit(event.SendMessage, msg)
	}

	go s.uploadAndSend(ctx, epoch, channelID, msg, draft.Attachment)
	return msg, nil
}

// uploadAndSend is the tagged continuation of an attachment send. The
// epoch check drops completions that finish after a channel switch so
// they cannot land in the wrong timeline.
func (s *Session) uploadAndSend(ctx context.Context, epoch uint64, channelID string, msg *timeline.Message, att *timeline.Attachment) {
	url, uploadErr := s.storage.Upload(ctx, common.UploadFile{
		Name:    att.Name,
		Mime:    att.Mime,
		Content: bytes.NewReader(att.Content),
	})

	s.mu.Lock()
	if s.epoch != epoch || s.channelID != channelID {
		s.mu.Unlock()
		log.Printf("session: dropping upload completion for switched channel %s", channelID)
		return
	}

	if uploadErr != nil {
		if msg.Text == "" {
			// Nothing left to send; withdraw the optimistic entry.
			s.store.Withdraw(msg)
			s.mu.Unlock()
			log.Printf("session: upload failed, message withdrawn: %v", uploadErr)
			return
		}
		// Degrade to a text-only send. One policy, applied uniformly.
		msg.Kind = timeline.KindText
		msg.File = nil
		client := s.client
		s.mu.Unlock()
		log.Printf("session: upload failed, sending text only: %v", uploadErr)
		if err := client.Emit(event.SendMessage, msg); err != nil {
			log.Printf("session: send failed: %v", err)
		}
		return
	}

	msg.File = &timeline.FileInfo{URL: url, Mime: att.Mime, Name: att.Name}
	client := s.client
	s.mu.Unlock()

	if err := client.Emit(event.SendMessage, msg); err != nil {
		log.Printf("session: send failed: %v", err)
	}
}

// Edit requests a patch on one of the local user's confirmed messages.
// The local entry is updated when the server broadcasts the edit back.
func (s *Session) Edit(messageID string, patch timeline.Patch) error {
	s.mu.Lock()
	entry, ok := s.store.Get(messageID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	if entry.AuthorID != s.user.ID {
		s.mu.Unlock()
		return ErrNotAuthor
	}
	client := s.client
	s.mu.Unlock()

	return client.Emit(event.MessageEdited, event.EditedPayload{ID: messageID, Patch: patch})
}

// Delete requests removal of one of the local user's messages.
func (s *Session) Delete(messageID string) error {
	s.mu.Lock()
	entry, ok := s.store.Get(messageID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	if entry.AuthorID != s.user.ID {
		s.mu.Unlock()
		return ErrNotAuthor
	}
	client := s.client
	s.mu.Unlock()

	return client.Emit(event.MessageDeleted, event.DeletedPayload{ID: messageID})
}

// KeyStroke records a local keystroke for the typing debounce.
func (s *Session) KeyStroke() {
	s.typing.KeyStroke()
}

// ToggleReaction flips one (user, emoji) pair on a message and emits
// the matching add_reaction or remove_reaction event.
func (s *Session) ToggleReaction(messageID, emoji string) error {
	s.mu.Lock()
	if _, ok := s.store.Get(messageID); !ok {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	added := s.reactions.Toggle(messageID, s.user.ID, emoji)
	client := s.client
	s.mu.Unlock()

	name := event.RemoveReaction
	if added {
		name = event.AddReaction
	}
	return client.Emit(name, event.ReactionPayload{
		MessageID: messageID,
		UserID:    s.user.ID,
		Emoji:     emoji,
	})
}

// Pin marks a timeline entry. Idempotent; re-emitting for an already
// pinned id is safe.
func (s *Session) Pin(messageID string) error {
	s.mu.Lock()
	if _, ok := s.store.Get(messageID); !ok {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	s.pins.Pin(messageID)
	client := s.client
	s.mu.Unlock()

	return client.Emit(event.PinMessage, event.PinPayload{MessageID: messageID})
}

// Unpin removes a pin. A no-op locally when not pinned, but the event
// may still be re-emitted safely.
func (s *Session) Unpin(messageID string) error {
	s.mu.Lock()
	s.pins.Unpin(messageID)
	client := s.client
	s.mu.Unlock()

	return client.Emit(event.UnpinMessage, event.PinPayload{MessageID: messageID})
}

// JumpToPin resolves a pinned id to its currently rendered entry.
func (s *Session) JumpToPin(messageID string) (*timeline.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pins.IsPinned(messageID) {
		return nil, false
	}
	return s.store.Get(messageID)
}

// Messages returns the timeline in arrival order.
func (s *Session) Messages() []*timeline.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.store.Messages()
	out := make([]*timeline.Message, len(entries))
	copy(out, entries)
	return out
}

// Reactions returns the pairs held on one message.
func (s *Session) Reactions(messageID string) []timeline.Reaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	pairs := s.reactions.Reactions(messageID)
	out := make([]timeline.Reaction, len(pairs))
	copy(out, pairs)
	return out
}

// Pinned returns the pinned ids in pin order.
func (s *Session) Pinned() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins.Pinned()
}

// Participants returns the live presence set.
func (s *Session) Participants() []common.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence.Users()
}

// RemoteTypers returns the names currently shown as typing.
func (s *Session) RemoteTypers() []string {
	return s.typing.RemoteTypers()
}
