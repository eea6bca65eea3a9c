// Package notify decides whether an incoming message should alert an
// inattentive user, and synthesizes the alert content.
package notify

import (
	"log"

	"coursechat/internal/common"
	"coursechat/internal/timeline"
)

// Alert is a short human-readable system notification. OnClick is
// invoked when the user activates the alert; the sink dismisses the
// alert after running it.
type Alert struct {
	Title   string
	Body    string
	OnClick func()
}

// Sink delivers alerts through the host notification facility.
type Sink interface {
	// Permitted reports whether the host notification permission is
	// granted. A denied permission silently suppresses alerts.
	Permitted() bool
	Deliver(a Alert)
}

// Host is the thin adapter over the process boundary supplying the
// window focus signal and refocus action.
type Host interface {
	Focused() bool
	Focus()
}

// ShouldNotify is the gating decision. Never notifies for the local
// user's own messages; otherwise requires permission granted, window
// unfocused, global preference on, and the per-channel preference
// explicitly enabled. A missing per-channel entry is disabled
// (fail-closed).
func ShouldNotify(msg *timeline.Message, localUserID string, prefs common.Preferences, windowFocused, permitted bool) bool {
	if msg == nil || msg.AuthorID == localUserID {
		return false
	}
	if !permitted || windowFocused {
		return false
	}
	if !prefs.Global {
		return false
	}
	return prefs.ChannelEnabled(msg.ChannelID)
}

// Gate observes new-message events and side-effects an alert when the
// decision function allows it.
type Gate struct {
	host       Host
	sink       Sink
	truncateAt int
}

func NewGate(host Host, sink Sink, truncateAt int) *Gate {
	if truncateAt <= 0 {
		truncateAt = 80
	}
	return &Gate{host: host, sink: sink, truncateAt: truncateAt}
}

// Observe runs the gate for one incoming message.
func (g *Gate) Observe(msg *timeline.Message, localUserID string, prefs common.Preferences) {
	if g.host == nil || g.sink == nil {
		return
	}
	if !ShouldNotify(msg, localUserID, prefs, g.host.Focused(), g.sink.Permitted()) {
		return
	}

	alert := BuildAlert(msg, g.truncateAt)
	alert.OnClick = g.host.Focus
	log.Printf("notify: delivering alert for message %s in channel %s", msg.ID, msg.ChannelID)
	g.sink.Deliver(alert)
}

// BuildAlert synthesizes the alert title and body for a message.
func BuildAlert(msg *timeline.Message, truncateAt int) Alert {
	title := msg.AuthorName
	if title == "" {
		title = msg.AuthorID
	}

	var body string
	switch msg.Kind {
	case timeline.KindCode:
		body = "shared a code snippet"
	case timeline.KindFile:
		name := ""
		if msg.File != nil {
			name = msg.File.Name
		}
		body = truncate(name, truncateAt)
	default:
		body = truncate(msg.Text, truncateAt)
	}

	return Alert{Title: title, Body: body}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
