// Package presence maintains the live participant set for the current
// channel. The server owns roster truth; snapshots replace wholesale.
package presence

import (
	"sort"

	"coursechat/internal/common"
)

// Tracker holds at most one entry per user.
type Tracker struct {
	users map[string]common.User
}

func NewTracker() *Tracker {
	return &Tracker{users: make(map[string]common.User)}
}

// ApplySnapshot replaces the presence set with the roster the server
// sent. No incremental diffing; joining twice is naturally idempotent.
func (t *Tracker) ApplySnapshot(users []common.User) {
	t.users = make(map[string]common.User, len(users))
	for _, u := range users {
		t.users[u.ID] = u
	}
}

func (t *Tracker) Contains(userID string) bool {
	_, ok := t.users[userID]
	return ok
}

// Users returns the participants sorted by display name.
func (t *Tracker) Users() []common.User {
	out := make([]common.User, 0, len(t.users))
	for _, u := range t.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

func (t *Tracker) Count() int {
	return len(t.users)
}

// Reset clears the set, used on channel switch.
func (t *Tracker) Reset() {
	t.users = make(map[string]common.User)
}
