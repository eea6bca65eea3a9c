// Package pin maintains the ordered set of pinned message ids for the
// current channel.
package pin

// Manager is the pin set. Pin and Unpin are idempotent; ids referencing
// messages no longer in the timeline are pruned on deletion events.
type Manager struct {
	order []string
	set   map[string]bool
}

func NewManager() *Manager {
	return &Manager{set: make(map[string]bool)}
}

// Pin adds an id to the set. Returns false when already pinned.
func (m *Manager) Pin(messageID string) bool {
	if m.set[messageID] {
		return false
	}
	m.set[messageID] = true
	m.order = append(m.order, messageID)
	return true
}

// Unpin removes an id. Unpinning a non-pinned id is a no-op.
func (m *Manager) Unpin(messageID string) bool {
	if !m.set[messageID] {
		return false
	}
	delete(m.set, messageID)
	for i, id := range m.order {
		if id == messageID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Prune drops an id whose message was deleted from the timeline.
func (m *Manager) Prune(messageID string) {
	m.Unpin(messageID)
}

func (m *Manager) IsPinned(messageID string) bool {
	return m.set[messageID]
}

// Pinned returns the pinned ids in pin order.
func (m *Manager) Pinned() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Replace swaps the set for a snapshot's pinned list, keeping only ids
// accepted by exists — the pin set may only reference timeline entries.
func (m *Manager) Replace(ids []string, exists func(string) bool) {
	m.order = m.order[:0]
	m.set = make(map[string]bool, len(ids))
	for _, id := range ids {
		if exists != nil && !exists(id) {
			continue
		}
		if m.set[id] {
			continue
		}
		m.set[id] = true
		m.order = append(m.order, id)
	}
}

func (m *Manager) Len() int {
	return len(m.order)
}
