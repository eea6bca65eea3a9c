// Package server is the reference event-channel server: an in-memory
// hub speaking the coursechat wire protocol. It is what the client
// engine talks to in development and integration tests.
package server

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"coursechat/internal/common"
	"coursechat/internal/event"
	"coursechat/internal/timeline"
)

// Inbound is one decoded frame with its origin.
type Inbound struct {
	Client *Client
	Env    event.Envelope
}

type storedMessage struct {
	msg     *timeline.Message
	channel string
}

// Hub owns all room state. A single Run goroutine consumes the
// channels, so the maps carry no lock.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Inbound    chan Inbound

	clients map[string]*Client            // client id -> client
	rooms   map[string]map[string]*Client // channel id -> client id -> client
	history map[string][]*timeline.Message
	pins    map[string][]string
	index   map[string]*storedMessage // message id -> entry
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan Inbound, 256),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		history:    make(map[string][]*timeline.Message),
		pins:       make(map[string][]string),
		index:      make(map[string]*storedMessage),
	}
}

// Run consumes hub channels until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.Register:
			h.clients[c.ID] = c
		case c := <-h.Unregister:
			h.drop(c)
		case in := <-h.Inbound:
			h.handle(in.Client, in.Env)
		}
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	ch := c.channel
	h.removeFromRoom(c)
	close(c.Send)
	if ch != "" {
		h.broadcastRoster(ch)
	}
}

func (h *Hub) handle(c *Client, env event.Envelope) {
	switch env.Event {
	case event.JoinChannel:
		h.handleJoin(c, env)
	case event.LeaveChannel:
		h.handleLeave(c, env)
	case event.SendMessage:
		h.handleSend(c, env)
	case event.MessageEdited:
		h.handleEdited(c, env)
	case event.MessageDeleted:
		h.handleDeleted(c, env)
	case event.Typing:
		h.handleTyping(c, env)
	case event.AddReaction, event.RemoveReaction:
		h.handleReaction(env)
	case event.PinMessage, event.UnpinMessage:
		h.handlePin(env)
	default:
		log.Printf("server: ignoring event %q from %s", env.Event, c.User.ID)
	}
}

func (h *Hub) handleJoin(c *Client, env event.Envelope) {
	p, err := env.DecodeJoin()
	if err != nil {
		log.Printf("server: %v", err)
		return
	}

	prev := c.channel
	h.removeFromRoom(c)
	if prev != "" && prev != p.ChannelID {
		h.broadcastRoster(prev)
	}

	c.channel = p.ChannelID
	room := h.rooms[p.ChannelID]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[p.ChannelID] = room
	}
	room[c.ID] = c

	h.sendSnapshot(c, p.ChannelID)
	h.broadcastRoster(p.ChannelID)
}

func (h *Hub) handleLeave(c *Client, env event.Envelope) {
	p, err := env.DecodeJoin()
	if err != nil {
		log.Printf("server: %v", err)
		return
	}
	if c.channel != p.ChannelID {
		return
	}
	h.removeFromRoom(c)
	h.broadcastRoster(p.ChannelID)
}

func (h *Hub) handleSend(c *Client, env event.Envelope) {
	m, err := env.DecodeMessage()
	if err != nil {
		log.Printf("server: %v", err)
		return
	}

	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.State = timeline.StateConfirmed
	m.Reactions = nil

	stored := m
	h.history[m.ChannelID] = append(h.history[m.ChannelID], &stored)
	h.index[m.ID] = &storedMessage{msg: &stored, channel: m.ChannelID}

	// Confirmation fans out to the whole room, sender included; the
	// sender's replica reconciles it against the pending entry.
	h.broadcast(m.ChannelID, event.MessageConfirmed, &stored)
}

func (h *Hub) handleEdited(c *Client, env event.Envelope) {
	p, err := env.DecodeEdited()
	if err != nil {
		log.Printf("server: %v", err)
		return
	}
	entry, ok := h.index[p.ID]
	if !ok {
		return
	}
	if entry.msg.AuthorID != c.User.ID {
		log.Printf("server: %s may not edit %s's message", c.User.ID, entry.msg.AuthorID)
		return
	}
	if p.Patch.Text != nil {
		entry.msg.Text = *p.Patch.Text
	}
	if p.Patch.Language != nil {
		entry.msg.Language = *p.Patch.Language
	}
	entry.msg.State = timeline.StateEdited
	h.broadcast(entry.channel, event.MessageEdited, p)
}

func (h *Hub) handleDeleted(c *Client, env event.Envelope) {
	p, err := env.DecodeDeleted()
	if err != nil {
		log.Printf("server: %v", err)
		return
	}
	entry, ok := h.index[p.ID]
	if !ok {
		return
	}
	if entry.msg.AuthorID != c.User.ID {
		log.Printf("server: %s may not delete %s's message", c.User.ID, entry.msg.AuthorID)
		return
	}
	delete(h.index, p.ID)

	msgs := h.history[entry.channel]
	for i, m := range msgs {
		if m.ID == p.ID {
			h.history[entry.channel] = append(msgs[:i], msgs[i+1:]...)
			break
		}
	}
	h.unpin(entry.channel, p.ID)
	h.broadcast(entry.channel, event.MessageDeleted, p)
}

func (h *Hub) handleTyping(c *Client, env event.Envelope) {
	p, err := env.DecodeTyping()
	if err != nil {
		log.Printf("server: %v", err)
		return
	}
	if p.UserName == "" {
		p.UserName = c.User.DisplayName
	}
	h.broadcast(p.ChannelID, event.Typing, p)
}

func (h *Hub) handleReaction(env event.Envelope) {
	p, err := env.DecodeReaction()
	if err != nil {
		log.Printf("server: %v", err)
		return
	}
	entry, ok := h.index[p.MessageID]
	if !ok {
		return
	}

	pair := timeline.Reaction{UserID: p.UserID, Emoji: p.Emoji}
	reactions := entry.msg.Reactions
	has := -1
	for i, r := range reactions {
		if r == pair {
			has = i
			break
		}
	}
	// Idempotent under redelivery: state only changes when needed.
	if env.Event == event.AddReaction && has < 0 {
		entry.msg.Reactions = append(reactions, pair)
	}
	if env.Event == event.RemoveReaction && has >= 0 {
		entry.msg.Reactions = append(reactions[:has], reactions[has+1:]...)
	}

	h.broadcast(entry.channel, env.Event, p)
}

func (h *Hub) handlePin(env event.Envelope) {
	p, err := env.DecodePin()
	if err != nil {
		log.Printf("server: %v", err)
		return
	}
	entry, ok := h.index[p.MessageID]
	if !ok {
		return
	}

	if env.Event == event.PinMessage {
		for _, id := range h.pins[entry.channel] {
			if id == p.MessageID {
				// Already pinned; re-broadcast is still safe.
				h.broadcast(entry.channel, env.Event, p)
				return
			}
		}
		h.pins[entry.channel] = append(h.pins[entry.channel], p.MessageID)
	} else {
		h.unpin(entry.channel, p.MessageID)
	}
	h.broadcast(entry.channel, env.Event, p)
}

func (h *Hub) unpin(channelID, messageID string) {
	ids := h.pins[channelID]
	for i, id := range ids {
		if id == messageID {
			h.pins[channelID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

func (h *Hub) removeFromRoom(c *Client) {
	if c.channel == "" {
		return
	}
	if room, ok := h.rooms[c.channel]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(h.rooms, c.channel)
		}
	}
	c.channel = ""
}

func (h *Hub) sendSnapshot(c *Client, channelID string) {
	msgs := make([]timeline.Message, 0, len(h.history[channelID]))
	for _, m := range h.history[channelID] {
		msgs = append(msgs, *m)
	}
	snap := event.HistorySnapshotPayload{
		Channel:  common.ChannelInfo{ID: channelID, Title: channelID},
		Messages: msgs,
		Pinned:   append([]string(nil), h.pins[channelID]...),
	}
	h.sendTo(c, event.HistorySnapshot, snap)
}

func (h *Hub) broadcastRoster(channelID string) {
	users := make([]common.User, 0, len(h.rooms[channelID]))
	for _, c := range h.rooms[channelID] {
		users = append(users, c.User)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	h.broadcast(channelID, event.RosterSnapshot, event.RosterSnapshotPayload{
		ChannelID: channelID,
		Users:     users,
	})
}

func (h *Hub) broadcast(channelID, name string, payload interface{}) {
	room, ok := h.rooms[channelID]
	if !ok {
		return
	}
	data, err := event.Marshal(name, payload)
	if err != nil {
		log.Printf("server: encode %s: %v", name, err)
		return
	}
	for _, c := range room {
		select {
		case c.Send <- data:
		default:
			// Slow consumer; drop rather than stall the hub.
		}
	}
}

func (h *Hub) sendTo(c *Client, name string, payload interface{}) {
	data, err := event.Marshal(name, payload)
	if err != nil {
		log.Printf("server: encode %s: %v", name, err)
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
