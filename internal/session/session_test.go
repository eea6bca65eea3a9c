package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"coursechat/internal/common"
	"coursechat/internal/event"
	"coursechat/internal/timeline"
	"coursechat/internal/typing"
)

// fakeClient records emitted events and lets tests feed the event
// channel directly.
type fakeClient struct {
	mu      sync.Mutex
	events  chan event.Envelope
	emitted []emitted
	joined  []string
	left    []string
}

type emitted struct {
	name    string
	payload interface{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{events: make(chan event.Envelope, 16)}
}

func (c *fakeClient) Join(channelID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined = append(c.joined, channelID)
	return nil
}

func (c *fakeClient) Leave(channelID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = append(c.left, channelID)
	return nil
}

func (c *fakeClient) Emit(name string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitted = append(c.emitted, emitted{name: name, payload: payload})
	return nil
}

func (c *fakeClient) Events() <-chan event.Envelope { return c.events }
func (c *fakeClient) Close() error                 { return nil }

func (c *fakeClient) emittedNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.emitted))
	for i, e := range c.emitted {
		names[i] = e.name
	}
	return names
}

func envelope(t *testing.T, name string, payload interface{}) event.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return event.Envelope{Event: name, Data: data}
}

type fakeIdentity struct{ user common.User }

func (f fakeIdentity) CurrentUser() (common.User, error) { return f.user, nil }

type fakePrefs struct {
	prefs common.Preferences
	err   error
}

func (f fakePrefs) GetPreferences(ctx context.Context, userID string) (common.Preferences, error) {
	return f.prefs, f.err
}

type mockStorage struct{ mock.Mock }

func (m *mockStorage) Upload(ctx context.Context, file common.UploadFile) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

type fakeSched struct{}

func (fakeSched) AfterFunc(d time.Duration, fn func()) typing.CancelFunc {
	return func() bool { return true }
}

func newTestSession(t *testing.T, storage common.FileStorage) (*Session, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	sess, err := New(client, fakeIdentity{user: common.User{ID: "me", DisplayName: "Me"}},
		storage, fakePrefs{prefs: common.Preferences{Global: true}}, Options{
			Scheduler: fakeSched{},
		})
	require.NoError(t, err)
	require.NoError(t, sess.SwitchChannel("chan-1"))
	return sess, client
}

func confirmed(id, echo, author, text string) timeline.Message {
	return timeline.Message{
		ID:           id,
		ClientEchoID: echo,
		ChannelID:    "chan-1",
		AuthorID:     author,
		AuthorName:   author,
		CreatedAt:    time.Now().UTC(),
		Kind:         timeline.KindText,
		Text:         text,
		State:        timeline.StateConfirmed,
	}
}

func TestSession_SendAndReconcile(t *testing.T) {
	sess, client := newTestSession(t, nil)

	msg, err := sess.SendDraft(context.Background(), timeline.Draft{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{event.SendMessage}, client.emittedNames())
	require.Len(t, sess.Messages(), 1)
	assert.Equal(t, timeline.StatePending, sess.Messages()[0].State)

	sess.dispatch(envelope(t, event.MessageConfirmed,
		confirmed("srv-1", msg.ClientEchoID, "me", "hello")))

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.Equal(t, timeline.StateConfirmed, msgs[0].State)
}

func TestSession_CrossChannelEventsDropped(t *testing.T) {
	sess, _ := newTestSession(t, nil)

	other := confirmed("srv-9", "", "bob", "wrong room")
	other.ChannelID = "chan-2"
	sess.dispatch(envelope(t, event.MessageConfirmed, other))

	assert.Empty(t, sess.Messages())

	sess.dispatch(envelope(t, event.RosterSnapshot, event.RosterSnapshotPayload{
		ChannelID: "chan-2",
		Users:     []common.User{{ID: "bob", DisplayName: "Bob"}},
	}))
	assert.Empty(t, sess.Participants())
}

func TestSession_SnapshotRebuildsState(t *testing.T) {
	sess, _ := newTestSession(t, nil)

	// A pending local send survives the snapshot replace.
	pending, err := sess.SendDraft(context.Background(), timeline.Draft{Text: "unacked"})
	require.NoError(t, err)

	m1 := confirmed("srv-1", "", "bob", "from history")
	m1.Reactions = []timeline.Reaction{{UserID: "bob", Emoji: "👍"}}
	sess.dispatch(envelope(t, event.HistorySnapshot, event.HistorySnapshotPayload{
		Channel:  common.ChannelInfo{ID: "chan-1", Title: "Algorithms"},
		Messages: []timeline.Message{m1},
		Pinned:   []string{"srv-1", "srv-gone"},
	}))

	msgs := sess.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.Equal(t, pending.ClientEchoID, msgs[1].ClientEchoID)

	assert.Equal(t, []timeline.Reaction{{UserID: "bob", Emoji: "👍"}}, sess.Reactions("srv-1"))
	// Pins referencing messages absent from the snapshot are dropped.
	assert.Equal(t, []string{"srv-1"}, sess.Pinned())
}

func TestSession_DeletePrunesPinsAndReactions(t *testing.T) {
	sess, _ := newTestSession(t, nil)
	sess.dispatch(envelope(t, event.MessageConfirmed, confirmed("srv-1", "", "bob", "pin me")))
	sess.dispatch(envelope(t, event.PinMessage, event.PinPayload{MessageID: "srv-1"}))
	sess.dispatch(envelope(t, event.AddReaction, event.ReactionPayload{MessageID: "srv-1", UserID: "bob", Emoji: "👍"}))
	require.Equal(t, []string{"srv-1"}, sess.Pinned())

	sess.dispatch(envelope(t, event.MessageDeleted, event.DeletedPayload{ID: "srv-1"}))

	assert.Empty(t, sess.Messages())
	assert.Empty(t, sess.Pinned())
	assert.Empty(t, sess.Reactions("srv-1"))
}

func TestSession_PinRequiresKnownMessage(t *testing.T) {
	sess, _ := newTestSession(t, nil)

	sess.dispatch(envelope(t, event.PinMessage, event.PinPayload{MessageID: "unknown"}))
	assert.Empty(t, sess.Pinned())

	assert.ErrorIs(t, sess.Pin("unknown"), ErrUnknownMessage)
}

func TestSession_ToggleReaction(t *testing.T) {
	sess, client := newTestSession(t, nil)
	sess.dispatch(envelope(t, event.MessageConfirmed, confirmed("srv-1", "", "bob", "react")))

	require.NoError(t, sess.ToggleReaction("srv-1", "👍"))
	require.NoError(t, sess.ToggleReaction("srv-1", "👍"))

	assert.Equal(t, []string{event.AddReaction, event.RemoveReaction}, client.emittedNames())
	assert.Empty(t, sess.Reactions("srv-1"))
}

func TestSession_EditAndDeleteOwnMessagesOnly(t *testing.T) {
	sess, client := newTestSession(t, nil)
	sess.dispatch(envelope(t, event.MessageConfirmed, confirmed("mine", "", "me", "typo")))
	sess.dispatch(envelope(t, event.MessageConfirmed, confirmed("theirs", "", "bob", "hands off")))

	text := "fixed"
	require.NoError(t, sess.Edit("mine", timeline.Patch{Text: &text}))
	assert.ErrorIs(t, sess.Edit("theirs", timeline.Patch{Text: &text}), ErrNotAuthor)
	assert.ErrorIs(t, sess.Edit("gone", timeline.Patch{Text: &text}), ErrUnknownMessage)

	require.NoError(t, sess.Delete("mine"))
	assert.ErrorIs(t, sess.Delete("theirs"), ErrNotAuthor)

	assert.Equal(t, []string{event.MessageEdited, event.MessageDeleted}, client.emittedNames())

	// The entry only changes when the server broadcasts the edit back.
	got, ok := sess.store.Get("mine")
	require.True(t, ok)
	assert.Equal(t, "typo", got.Text)
	sess.dispatch(envelope(t, event.MessageEdited, event.EditedPayload{ID: "mine", Patch: timeline.Patch{Text: &text}}))
	got, _ = sess.store.Get("mine")
	assert.Equal(t, "fixed", got.Text)
}

func TestSession_OwnTypingEchoIgnored(t *testing.T) {
	sess, _ := newTestSession(t, nil)

	sess.dispatch(envelope(t, event.Typing, event.TypingPayload{
		ChannelID: "chan-1", UserID: "me", UserName: "Me", IsTyping: true,
	}))
	assert.Empty(t, sess.RemoteTypers())

	sess.dispatch(envelope(t, event.Typing, event.TypingPayload{
		ChannelID: "chan-1", UserID: "bob", UserName: "Bob", IsTyping: true,
	}))
	assert.Equal(t, []string{"Bob"}, sess.RemoteTypers())
}

func TestSession_SwitchChannelResetsState(t *testing.T) {
	sess, client := newTestSession(t, nil)
	sess.dispatch(envelope(t, event.MessageConfirmed, confirmed("srv-1", "", "bob", "old room")))
	sess.dispatch(envelope(t, event.PinMessage, event.PinPayload{MessageID: "srv-1"}))

	require.NoError(t, sess.SwitchChannel("chan-2"))

	assert.Empty(t, sess.Messages())
	assert.Empty(t, sess.Pinned())
	assert.Equal(t, "chan-2", sess.CurrentChannel())
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, []string{"chan-1"}, client.left)
	assert.Equal(t, []string{"chan-1", "chan-2"}, client.joined)
}

func TestSession_UploadFailureDegradesToText(t *testing.T) {
	storage := &mockStorage{}
	storage.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("gridfs down"))
	sess, client := newTestSession(t, storage)

	_, err := sess.SendDraft(context.Background(), timeline.Draft{
		Text:       "see attachment",
		Attachment: &timeline.Attachment{Name: "notes.pdf", Content: []byte("x")},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(client.emittedNames()) == 1
	}, time.Second, 10*time.Millisecond)

	client.mu.Lock()
	sent := client.emitted[0].payload.(*timeline.Message)
	client.mu.Unlock()
	assert.Equal(t, timeline.KindText, sent.Kind)
	assert.Nil(t, sent.File)
	assert.Equal(t, "see attachment", sent.Text)
}

func TestSession_UploadFailureWithoutTextWithdraws(t *testing.T) {
	storage := &mockStorage{}
	storage.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("gridfs down"))
	sess, client := newTestSession(t, storage)

	_, err := sess.SendDraft(context.Background(), timeline.Draft{
		Attachment: &timeline.Attachment{Name: "notes.pdf", Content: []byte("x")},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sess.Messages()) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, client.emittedNames())
}

func TestSession_StaleUploadDroppedAfterSwitch(t *testing.T) {
	storage := &mockStorage{}
	gate := make(chan struct{})
	storage.On("Upload", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-gate }).
		Return("http://media/1", nil).
		Once()
	sess, client := newTestSession(t, storage)

	_, err := sess.SendDraft(context.Background(), timeline.Draft{
		Text:       "slow upload",
		Attachment: &timeline.Attachment{Name: "big.bin", Content: []byte("x")},
	})
	require.NoError(t, err)
	require.Len(t, sess.Messages(), 1)

	require.NoError(t, sess.SwitchChannel("chan-2"))
	close(gate)

	// The completion lands after the switch: nothing is emitted and the
	// new channel's timeline stays empty.
	assert.Never(t, func() bool {
		for _, name := range client.emittedNames() {
			if name == event.SendMessage {
				return true
			}
		}
		return len(sess.Messages()) != 0
	}, 300*time.Millisecond, 20*time.Millisecond)
	storage.AssertExpectations(t)
}

func TestSession_EmptyDraftRejected(t *testing.T) {
	sess, _ := newTestSession(t, nil)
	_, err := sess.SendDraft(context.Background(), timeline.Draft{})
	assert.ErrorIs(t, err, timeline.ErrEmptyDraft)
}

func TestSession_SendWithoutChannel(t *testing.T) {
	client := newFakeClient()
	sess, err := New(client, fakeIdentity{user: common.User{ID: "me"}}, nil, nil, Options{Scheduler: fakeSched{}})
	require.NoError(t, err)

	_, err = sess.SendDraft(context.Background(), timeline.Draft{Text: "hi"})
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestSession_RunReturnsOnClosedChannel(t *testing.T) {
	sess, client := newTestSession(t, nil)
	close(client.events)

	err := sess.Run(context.Background())
	assert.ErrorIs(t, err, ErrChannelClosed)
}
