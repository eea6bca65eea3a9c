// Package session reconciles the optimistic local timeline with the
// server-confirmed event stream and overlays presence, typing, reaction
// and pin state on it.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"coursechat/internal/channel"
	"coursechat/internal/common"
	"coursechat/internal/event"
	"coursechat/internal/notify"
	"coursechat/internal/pin"
	"coursechat/internal/presence"
	"coursechat/internal/reaction"
	"coursechat/internal/timeline"
	"coursechat/internal/typing"
)

var (
	ErrNoChannel      = errors.New("no channel joined")
	ErrUnknownMessage = errors.New("message not in timeline")
	ErrNotAuthor      = errors.New("only the author can modify a message")
	// ErrChannelClosed is returned by Run when the event channel drops;
	// the caller redials and re-attaches, and the fresh history snapshot
	// is the sole recovery mechanism.
	ErrChannelClosed = errors.New("event channel closed")
)

// Options carries the injected boundary adapters and tunables.
type Options struct {
	TypingQuiet time.Duration
	Scheduler   typing.Scheduler
	TruncateAt  int
	Host        notify.Host
	Sink        notify.Sink
}

// Session owns the per-channel state for one signed-in user. The
// timeline, presence set, reaction state and pin set are mutated only
// here, inside event dispatch or the local operations.
type Session struct {
	mu sync.Mutex

	client    channel.Client
	identity  common.IdentityProvider
	storage   common.FileStorage
	prefStore common.PreferenceStore

	store     *timeline.Store
	presence  *presence.Tracker
	typing    *typing.Coordinator
	reactions *reaction.Aggregator
	pins      *pin.Manager
	gate      *notify.Gate

	user      common.User
	prefs     common.Preferences
	channelID string
	// epoch tags async upload continuations with the channel switch
	// generation they were issued under; stale completions are dropped.
	epoch uint64
}

func New(client channel.Client, identity common.IdentityProvider, storage common.FileStorage, prefStore common.PreferenceStore, opts Options) (*Session, error) {
	user, err := identity.CurrentUser()
	if err != nil {
		return nil, err
	}

	s := &Session{
		client:    client,
		identity:  identity,
		storage:   storage,
		prefStore: prefStore,
		store:     timeline.NewStore(),
		presence:  presence.NewTracker(),
		reactions: reaction.NewAggregator(),
		pins:      pin.NewManager(),
		gate:      notify.NewGate(opts.Host, opts.Sink, opts.TruncateAt),
		user:      user,
	}
	s.typing = typing.NewCoordinator(opts.TypingQuiet, opts.Scheduler, s.emitTyping)

	if prefStore != nil {
		prefs, err := prefStore.GetPreferences(context.Background(), user.ID)
		if err != nil {
			// Fail-closed: no preferences means no notifications.
			log.Printf("session: preference load failed, notifications stay off: %v", err)
		} else {
			s.prefs = prefs
		}
	}

	return s, nil
}

// User returns the locally signed-in user.
func (s *Session) User() common.User {
	return s.user
}

// CurrentChannel returns the joined channel id, empty when none.
func (s *Session) CurrentChannel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// RefreshPreferences reloads the notification preference set.
func (s *Session) RefreshPreferences(ctx context.Context) error {
	if s.prefStore == nil {
		return nil
	}
	prefs, err := s.prefStore.GetPreferences(ctx, s.user.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.prefs = prefs
	s.mu.Unlock()
	return nil
}

// SwitchChannel leaves the previous channel, resets all per-channel
// state, and joins the new one. The leave is emitted before the join so
// no event of the previous channel can leak into the new subscription.
func (s *Session) SwitchChannel(channelID string) error {
	s.mu.Lock()
	prev := s.channelID
	s.mu.Unlock()

	if prev == channelID {
		return nil
	}
	if prev != "" {
		// Flush a trailing typing(false) while the old channel is current.
		s.typing.Stop()
		if err := s.client.Leave(prev, s.user.ID); err != nil {
			log.Printf("session: leave %s failed: %v", prev, err)
		}
	}

	s.mu.Lock()
	s.channelID = channelID
	s.epoch++
	s.store = timeline.NewStore()
	s.presence.Reset()
	s.typing.ResetRemote()
	s.reactions.Reset()
	s.pins = pin.NewManager()
	s.mu.Unlock()

	if channelID == "" {
		return nil
	}
	return s.client.Join(channelID, s.user.ID)
}

// Attach rebinds the session to a freshly dialed client after a
// disconnect and re-joins the current channel. The server answers the
// join with a history snapshot that replaces the local timeline.
func (s *Session) Attach(client channel.Client) error {
	s.mu.Lock()
	s.client = client
	ch := s.channelID
	s.mu.Unlock()

	if ch == "" {
		return nil
	}
	return client.Join(ch, s.user.ID)
}

// Run consumes the event channel until the context is cancelled or the
// connection drops. Events for a single channel are processed in the
// order the client delivers them; no reordering or batching.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	events := s.client.Events()
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-events:
			if !ok {
				return ErrChannelClosed
			}
			s.dispatch(env)
		}
	}
}

func (s *Session) dispatch(env event.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch env.Event {
	case event.HistorySnapshot:
		s.onHistorySnapshot(env)
	case event.MessageConfirmed:
		s.onConfirmed(env)
	case event.MessageEdited:
		s.onEdited(env)
	case event.MessageDeleted:
		s.onDeleted(env)
	case event.Typing:
		s.onTyping(env)
	case event.AddReaction, event.RemoveReaction:
		s.onReaction(env)
	case event.PinMessage, event.UnpinMessage:
		s.onPin(env)
	case event.RosterSnapshot:
		s.onRoster(env)
	default:
		log.Printf("session: ignoring unknown event %q", env.Event)
	}
}

func (s *Session) onHistorySnapshot(env event.Envelope) {
	p, err := env.DecodeHistorySnapshot()
	if err != nil {
		log.Printf("session: %v", err)
		return
	}
	if p.Channel.ID != s.channelID {
		return
	}

	carried := s.store.ReplaceAll(p.Messages)
	if carried > 0 {
		log.Printf("session: carried %d pending message(s) across snapshot replace", carried)
	}

	s.reactions.Reset()
	for _, msg := range p.Messages {
		if msg.ID != "" && len(msg.Reactions) > 0 {
			s.reactions.Replace(msg.ID, msg.Reactions)
		}
	}

	exists := func(id string) bool {
		_, ok := s.store.Get(id)
		return ok
	}
	s.pins.Replace(p.Pinned, exists)
}

func (s *Session) onConfirmed(env event.Envelope) {
	msg, err := env.DecodeMessage()
	if err != nil {
		log.Printf("session: %v", err)
		return
	}
	if msg.ChannelID != s.channelID {
		return
	}

	outcome := s.store.Confirm(msg)
	if outcome == timeline.DuplicateDropped {
		return
	}
	if msg.ID != "" {
		// The echoed reaction set is authoritative for this message.
		s.reactions.Replace(msg.ID, msg.Reactions)
	}

	if outcome == timeline.AppendedNew {
		if entry, ok := s.store.Get(msg.ID); ok {
			s.gate.Observe(entry, s.user.ID, s.prefs)
		}
	}
}

func (s *Session) onEdited(env event.Envelope) {
	p, err := env.DecodeEdited()
	if err != nil {
		log.Printf("session: %v", err)
		return
	}
	s.store.ApplyEdit(p.ID, p.Patch)
}

func (s *Session) onDeleted(env event.Envelope) {
	p, err := env.DecodeDeleted()
	if err != nil {
		log.Printf("session: %v", err)
		return
	}
	s.store.ApplyDelete(p.ID)
	// Deletion always clears annotations, even when the entry was
	// never in this replica's timeline.
	s.pins.Prune(p.ID)
	s.reactions.Drop(p.ID)
}

func (s *Session) onTyping(env event.Envelope) {
	p, err := env.DecodeTyping()
	if err != nil {
		log.Printf("session: %v", err)
		return
	}
	if p.ChannelID != s.channelID || p.UserID == s.user.ID {
		return
	}
	s.typing.HandleRemote(p.UserID, p.UserName, p.IsTyping)
}

func (s *Session) onReaction(env event.Envelope) {
	p, err := env.DecodeReaction()
	if err != nil {
		log.Printf("session: %v", err)
		return
	}
	if _, ok := s.store.Get(p.MessageID); !ok {
		return
	}
	if env.Event == event.AddReaction {
		s.reactions.Add(p.MessageID, p.UserID, p.Emoji)
	} else {
		s.reactions.Remove(p.MessageID, p.UserID, p.Emoji)
	}
}

func (s *Session) onPin(env event.Envelope) {
	p, err := env.DecodePin()
	if err != nil {
		log.Printf("session: %v", err)
		return
	}
	if env.Event == event.PinMessage {
		// The pin set may only reference ids present in the timeline.
		if _, ok := s.store.Get(p.MessageID); !ok {
			return
		}
		s.pins.Pin(p.MessageID)
	} else {
		s.pins.Unpin(p.MessageID)
	}
}

func (s *Session) onRoster(env event.Envelope) {
	p, err := env.DecodeRosterSnapshot()
	if err != nil {
		log.Printf("session: %v", err)
		return
	}
	if p.ChannelID != s.channelID {
		return
	}
	s.presence.ApplySnapshot(p.Users)
}

func (s *Session) emitTyping(isTyping bool) {
	s.mu.Lock()
	ch := s.channelID
	client := s.client
	s.mu.Unlock()

	if ch == "" || client == nil {
		return
	}
	err := client.Emit(event.Typing, event.TypingPayload{
		ChannelID: ch,
		UserID:    s.user.ID,
		UserName:  s.user.DisplayName,
		IsTyping:  isTyping,
	})
	if err != nil {
		log.Printf("session: typing emit failed: %v", err)
	}
}
