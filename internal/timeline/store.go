package timeline

// ConfirmOutcome reports how a message_confirmed event was reconciled.
type ConfirmOutcome int

const (
	// ConfirmedEcho replaced a pending entry matched by clientEchoId.
	ConfirmedEcho ConfirmOutcome = iota
	// ConfirmedFallback replaced a pending entry matched by author+payload.
	ConfirmedFallback
	// AppendedNew appended a genuinely new incoming message.
	AppendedNew
	// DuplicateDropped discarded a redelivery of an already-known message.
	DuplicateDropped
)

// Store is the append-ordered message timeline for one channel.
//
// The timeline preserves arrival order, not author-declared timestamp
// order; out-of-order timestamp delivery is not re-sorted. All mutation
// happens inside the session dispatch loop, so the store carries no lock.
type Store struct {
	entries []*Message
	byID    map[string]*Message
}

func NewStore() *Store {
	return &Store{byID: make(map[string]*Message)}
}

// AppendPending inserts an optimistic local entry at the tail.
// The caller assigns ClientEchoID before appending.
func (s *Store) AppendPending(msg *Message) {
	msg.State = StatePending
	s.entries = append(s.entries, msg)
}

// Confirm reconciles a server-confirmed message against the timeline.
//
// Match order: clientEchoId against a pending entry, then the legacy
// fallback (author + kind + payload equality against the first unconfirmed
// entry), then append as new — unless the server id is already present,
// which marks a duplicate delivery under at-least-once semantics.
func (s *Store) Confirm(server Message) ConfirmOutcome {
	if server.ClientEchoID != "" {
		for _, entry := range s.entries {
			if entry.ClientEchoID != server.ClientEchoID {
				continue
			}
			if entry.State != StatePending {
				// Already reconciled once; the transport redelivered.
				return DuplicateDropped
			}
			s.replaceInPlace(entry, server)
			return ConfirmedEcho
		}
	}

	for _, entry := range s.entries {
		if entry.State == StatePending && entry.AuthorID == server.AuthorID && entry.SamePayload(&server) {
			s.replaceInPlace(entry, server)
			return ConfirmedFallback
		}
	}

	if server.ID != "" {
		if _, exists := s.byID[server.ID]; exists {
			return DuplicateDropped
		}
	}

	incoming := server
	incoming.State = StateConfirmed
	s.entries = append(s.entries, &incoming)
	if incoming.ID != "" {
		s.byID[incoming.ID] = &incoming
	}
	return AppendedNew
}

// replaceInPlace swaps a pending entry for its confirmation, preserving
// the entry's position in the timeline.
func (s *Store) replaceInPlace(entry *Message, server Message) {
	echo := entry.ClientEchoID
	*entry = server
	if entry.ClientEchoID == "" {
		entry.ClientEchoID = echo
	}
	entry.State = StateConfirmed
	if entry.ID != "" {
		s.byID[entry.ID] = entry
	}
}

// ApplyEdit patches a confirmed entry in place.
func (s *Store) ApplyEdit(id string, patch Patch) bool {
	entry, ok := s.byID[id]
	if !ok {
		return false
	}
	if patch.Text != nil {
		entry.Text = *patch.Text
	}
	if patch.Language != nil {
		entry.Language = *patch.Language
	}
	entry.State = StateEdited
	return true
}

// ApplyDelete removes an entry from the timeline. Pin cleanup is the
// session's responsibility.
func (s *Store) ApplyDelete(id string) bool {
	entry, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	for i, e := range s.entries {
		if e == entry {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return true
}

// ReplaceAll swaps the timeline for a fresh history snapshot.
//
// Pending entries not yet reconciled are carried over to the tail so a
// reconnect cannot silently drop an optimistic local echo; a later
// confirmation still reconciles them by echo token. Returns the number
// of carried entries.
func (s *Store) ReplaceAll(history []Message) int {
	var pending []*Message
	for _, entry := range s.entries {
		if entry.State == StatePending {
			pending = append(pending, entry)
		}
	}

	s.entries = make([]*Message, 0, len(history)+len(pending))
	s.byID = make(map[string]*Message, len(history))
	for _, msg := range history {
		m := msg
		if m.State == "" || m.State == StatePending {
			m.State = StateConfirmed
		}
		s.entries = append(s.entries, &m)
		if m.ID != "" {
			s.byID[m.ID] = &m
		}
	}
	s.entries = append(s.entries, pending...)
	return len(pending)
}

// Withdraw removes a still-pending optimistic entry, used when a send
// is aborted before the event is emitted.
func (s *Store) Withdraw(msg *Message) bool {
	if msg.State != StatePending {
		return false
	}
	for i, e := range s.entries {
		if e == msg {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Get looks up a confirmed entry by server id.
func (s *Store) Get(id string) (*Message, bool) {
	entry, ok := s.byID[id]
	return entry, ok
}

// Messages returns the timeline in arrival order.
func (s *Store) Messages() []*Message {
	return s.entries
}

func (s *Store) Len() int {
	return len(s.entries)
}
