package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursechat/internal/common"
	"coursechat/internal/timeline"
)

func enabledPrefs(channelID string) common.Preferences {
	return common.Preferences{
		Global:   true,
		Channels: []common.ChannelPreference{{ChannelID: channelID, Enabled: true}},
	}
}

func incoming(channelID, authorID string) *timeline.Message {
	return &timeline.Message{
		ID:        "srv-1",
		ChannelID: channelID,
		AuthorID:  authorID,
		Kind:      timeline.KindText,
		Text:      "hello there",
	}
}

func TestShouldNotify(t *testing.T) {
	tests := []struct {
		name      string
		msg       *timeline.Message
		prefs     common.Preferences
		focused   bool
		permitted bool
		want      bool
	}{
		{
			name:      "all conditions met",
			msg:       incoming("chan-1", "bob"),
			prefs:     enabledPrefs("chan-1"),
			permitted: true,
			want:      true,
		},
		{
			name:      "own message never notifies",
			msg:       incoming("chan-1", "me"),
			prefs:     enabledPrefs("chan-1"),
			permitted: true,
			want:      false,
		},
		{
			name:      "window focused",
			msg:       incoming("chan-1", "bob"),
			prefs:     enabledPrefs("chan-1"),
			focused:   true,
			permitted: true,
			want:      false,
		},
		{
			name:  "permission denied",
			msg:   incoming("chan-1", "bob"),
			prefs: enabledPrefs("chan-1"),
			want:  false,
		},
		{
			name: "global preference off",
			msg:  incoming("chan-1", "bob"),
			prefs: common.Preferences{
				Channels: []common.ChannelPreference{{ChannelID: "chan-1", Enabled: true}},
			},
			permitted: true,
			want:      false,
		},
		{
			name:      "channel explicitly disabled",
			msg:       incoming("chan-1", "bob"),
			prefs:     common.Preferences{Global: true, Channels: []common.ChannelPreference{{ChannelID: "chan-1", Enabled: false}}},
			permitted: true,
			want:      false,
		},
		{
			name:      "channel absent from preferences is fail-closed",
			msg:       incoming("chan-unlisted", "bob"),
			prefs:     common.Preferences{Global: true},
			permitted: true,
			want:      false,
		},
		{
			name:      "nil message",
			msg:       nil,
			prefs:     enabledPrefs("chan-1"),
			permitted: true,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldNotify(tt.msg, "me", tt.prefs, tt.focused, tt.permitted)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildAlert(t *testing.T) {
	t.Run("text body truncated by runes", func(t *testing.T) {
		msg := incoming("chan-1", "bob")
		msg.AuthorName = "Bob"
		msg.Text = strings.Repeat("ä", 100)

		alert := BuildAlert(msg, 80)

		assert.Equal(t, "Bob", alert.Title)
		assert.Equal(t, strings.Repeat("ä", 80)+"…", alert.Body)
	})

	t.Run("code messages never leak source", func(t *testing.T) {
		msg := incoming("chan-1", "bob")
		msg.Kind = timeline.KindCode
		msg.Text = "package main"

		alert := BuildAlert(msg, 80)
		assert.Equal(t, "shared a code snippet", alert.Body)
	})

	t.Run("file messages show the file name", func(t *testing.T) {
		msg := incoming("chan-1", "bob")
		msg.Kind = timeline.KindFile
		msg.File = &timeline.FileInfo{Name: "lecture-notes.pdf"}

		alert := BuildAlert(msg, 80)
		assert.Equal(t, "lecture-notes.pdf", alert.Body)
	})

	t.Run("falls back to author id without display name", func(t *testing.T) {
		alert := BuildAlert(incoming("chan-1", "bob"), 80)
		assert.Equal(t, "bob", alert.Title)
	})
}

type recordingSink struct {
	permitted bool
	delivered []Alert
}

func (s *recordingSink) Permitted() bool { return s.permitted }
func (s *recordingSink) Deliver(a Alert) { s.delivered = append(s.delivered, a) }

type stubHost struct {
	focused   bool
	refocused bool
}

func (h *stubHost) Focused() bool { return h.focused }
func (h *stubHost) Focus()        { h.refocused = true }

func TestGate_Observe(t *testing.T) {
	sink := &recordingSink{permitted: true}
	host := &stubHost{}
	gate := NewGate(host, sink, 80)

	gate.Observe(incoming("chan-1", "bob"), "me", enabledPrefs("chan-1"))
	require.Len(t, sink.delivered, 1)

	// Clicking the alert refocuses the window.
	sink.delivered[0].OnClick()
	assert.True(t, host.refocused)

	host.focused = true
	gate.Observe(incoming("chan-1", "bob"), "me", enabledPrefs("chan-1"))
	assert.Len(t, sink.delivered, 1)
}
