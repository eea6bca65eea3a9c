// Package event defines the wire protocol of the bidirectional channel:
// named events with explicit payload schemas, validated at the boundary.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"coursechat/internal/common"
	"coursechat/internal/timeline"
)

// Event names.
const (
	JoinChannel      = "join_channel"
	LeaveChannel     = "leave_channel"
	HistorySnapshot  = "history_snapshot"
	SendMessage      = "send_message"
	MessageConfirmed = "message_confirmed"
	MessageEdited    = "message_edited"
	MessageDeleted   = "message_deleted"
	Typing           = "typing"
	AddReaction      = "add_reaction"
	RemoveReaction   = "remove_reaction"
	PinMessage       = "pin_message"
	UnpinMessage     = "unpin_message"
	RosterSnapshot   = "roster_snapshot"
)

// Envelope wraps every event on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var ErrMissingEvent = errors.New("envelope has no event name")

// Marshal encodes an event and its payload into wire bytes.
func Marshal(name string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}

// Decode parses wire bytes into an envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return env, nil
}

// JoinPayload serves join_channel and leave_channel.
type JoinPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// HistorySnapshotPayload replaces the local timeline on (re)join.
type HistorySnapshotPayload struct {
	Channel  common.ChannelInfo `json:"channel"`
	Messages []timeline.Message `json:"messages"`
	Pinned   []string           `json:"pinned"`
}

// EditedPayload carries a message_edited patch.
type EditedPayload struct {
	ID    string         `json:"id"`
	Patch timeline.Patch `json:"patch"`
}

// DeletedPayload carries a message_deleted id.
type DeletedPayload struct {
	ID string `json:"id"`
}

// TypingPayload is bidirectional.
type TypingPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	IsTyping  bool   `json:"is_typing"`
}

// ReactionPayload serves add_reaction and remove_reaction.
type ReactionPayload struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// PinPayload serves pin_message and unpin_message.
type PinPayload struct {
	MessageID string `json:"message_id"`
}

// RosterSnapshotPayload replaces the presence set wholesale.
type RosterSnapshotPayload struct {
	ChannelID string        `json:"channel_id"`
	Users     []common.User `json:"users"`
}

func (e Envelope) DecodeJoin() (JoinPayload, error) {
	var p JoinPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("%s: %w", e.Event, err)
	}
	if p.ChannelID == "" || p.UserID == "" {
		return p, fmt.Errorf("%s: channel_id and user_id are required", e.Event)
	}
	return p, nil
}

func (e Envelope) DecodeHistorySnapshot() (HistorySnapshotPayload, error) {
	var p HistorySnapshotPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("%s: %w", e.Event, err)
	}
	if p.Channel.ID == "" {
		return p, fmt.Errorf("%s: channel id is required", e.Event)
	}
	return p, nil
}

// DecodeMessage parses a send_message or message_confirmed payload.
func (e Envelope) DecodeMessage() (timeline.Message, error) {
	var m timeline.Message
	if err := json.Unmarshal(e.Data, &m); err != nil {
		return m, fmt.Errorf("%s: %w", e.Event, err)
	}
	if m.ChannelID == "" || m.AuthorID == "" {
		return m, fmt.Errorf("%s: channel_id and author_id are required", e.Event)
	}
	switch m.Kind {
	case timeline.KindText, timeline.KindCode, timeline.KindFile:
	default:
		return m, fmt.Errorf("%s: unknown message kind %q", e.Event, m.Kind)
	}
	return m, nil
}

func (e Envelope) DecodeEdited() (EditedPayload, error) {
	var p EditedPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("%s: %w", e.Event, err)
	}
	if p.ID == "" {
		return p, fmt.Errorf("%s: id is required", e.Event)
	}
	return p, nil
}

func (e Envelope) DecodeDeleted() (DeletedPayload, error) {
	var p DeletedPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("%s: %w", e.Event, err)
	}
	if p.ID == "" {
		return p, fmt.Errorf("%s: id is required", e.Event)
	}
	return p, nil
}

func (e Envelope) DecodeTyping() (TypingPayload, error) {
	var p TypingPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("%s: %w", e.Event, err)
	}
	if p.ChannelID == "" || p.UserID == "" {
		return p, fmt.Errorf("%s: channel_id and user_id are required", e.Event)
	}
	return p, nil
}

func (e Envelope) DecodeReaction() (ReactionPayload, error) {
	var p ReactionPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("%s: %w", e.Event, err)
	}
	if p.MessageID == "" || p.UserID == "" || p.Emoji == "" {
		return p, fmt.Errorf("%s: message_id, user_id and emoji are required", e.Event)
	}
	return p, nil
}

func (e Envelope) DecodePin() (PinPayload, error) {
	var p PinPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("%s: %w", e.Event, err)
	}
	if p.MessageID == "" {
		return p, fmt.Errorf("%s: message_id is required", e.Event)
	}
	return p, nil
}

func (e Envelope) DecodeRosterSnapshot() (RosterSnapshotPayload, error) {
	var p RosterSnapshotPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("%s: %w", e.Event, err)
	}
	if p.ChannelID == "" {
		return p, fmt.Errorf("%s: channel_id is required", e.Event)
	}
	return p, nil
}
