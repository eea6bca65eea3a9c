// Package reaction maintains the per-message multiset of (user, emoji)
// pairs with toggle semantics.
package reaction

import (
	"coursechat/internal/timeline"
)

// Aggregator owns reaction state for the current channel, keyed by
// message id. Pairs are unique: toggling an existing pair removes it.
type Aggregator struct {
	byMessage map[string][]timeline.Reaction
}

func NewAggregator() *Aggregator {
	return &Aggregator{byMessage: make(map[string][]timeline.Reaction)}
}

// Toggle flips one (user, emoji) pair and reports whether the pair is
// now present (true → the caller should emit add_reaction).
func (a *Aggregator) Toggle(messageID, userID, emoji string) bool {
	pairs := a.byMessage[messageID]
	for i, p := range pairs {
		if p.UserID == userID && p.Emoji == emoji {
			a.byMessage[messageID] = append(pairs[:i], pairs[i+1:]...)
			if len(a.byMessage[messageID]) == 0 {
				delete(a.byMessage, messageID)
			}
			return false
		}
	}
	a.byMessage[messageID] = append(pairs, timeline.Reaction{UserID: userID, Emoji: emoji})
	return true
}

// Add applies a remote add_reaction event. Idempotent under replay.
func (a *Aggregator) Add(messageID, userID, emoji string) {
	if a.Has(messageID, userID, emoji) {
		return
	}
	a.byMessage[messageID] = append(a.byMessage[messageID], timeline.Reaction{UserID: userID, Emoji: emoji})
}

// Remove applies a remote remove_reaction event. Removing an absent
// pair is a no-op.
func (a *Aggregator) Remove(messageID, userID, emoji string) {
	pairs := a.byMessage[messageID]
	for i, p := range pairs {
		if p.UserID == userID && p.Emoji == emoji {
			a.byMessage[messageID] = append(pairs[:i], pairs[i+1:]...)
			if len(a.byMessage[messageID]) == 0 {
				delete(a.byMessage, messageID)
			}
			return
		}
	}
}

// Replace applies the server's echoed reaction set for a message as a
// wholesale swap. This tolerates duplicate and out-of-order echoes.
func (a *Aggregator) Replace(messageID string, pairs []timeline.Reaction) {
	if len(pairs) == 0 {
		delete(a.byMessage, messageID)
		return
	}
	cp := make([]timeline.Reaction, len(pairs))
	copy(cp, pairs)
	a.byMessage[messageID] = cp
}

// Drop clears reaction state for a deleted message.
func (a *Aggregator) Drop(messageID string) {
	delete(a.byMessage, messageID)
}

func (a *Aggregator) Has(messageID, userID, emoji string) bool {
	for _, p := range a.byMessage[messageID] {
		if p.UserID == userID && p.Emoji == emoji {
			return true
		}
	}
	return false
}

// Reactions returns the pairs held on a message, in arrival order.
func (a *Aggregator) Reactions(messageID string) []timeline.Reaction {
	return a.byMessage[messageID]
}

// Reset clears all state, used on channel switch.
func (a *Aggregator) Reset() {
	a.byMessage = make(map[string][]timeline.Reaction)
}
