package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingText(echo, author, text string) *Message {
	return &Message{
		ClientEchoID: echo,
		ChannelID:    "chan-1",
		AuthorID:     author,
		CreatedAt:    time.Now().UTC(),
		Kind:         KindText,
		Text:         text,
	}
}

func confirmedText(id, echo, author, text string) Message {
	return Message{
		ID:           id,
		ClientEchoID: echo,
		ChannelID:    "chan-1",
		AuthorID:     author,
		CreatedAt:    time.Now().UTC(),
		Kind:         KindText,
		Text:         text,
		State:        StateConfirmed,
	}
}

func TestStore_ConfirmByEcho(t *testing.T) {
	store := NewStore()
	local := pendingText("echo-1", "alice", "hello")
	store.AppendPending(local)

	outcome := store.Confirm(confirmedText("srv-1", "echo-1", "alice", "hello"))

	assert.Equal(t, ConfirmedEcho, outcome)
	require.Equal(t, 1, store.Len())
	got, ok := store.Get("srv-1")
	require.True(t, ok)
	assert.Equal(t, StateConfirmed, got.State)
	assert.Equal(t, "hello", got.Text)
	// The pending entry itself was replaced, not shadowed by a second one.
	assert.Same(t, local, got)
}

func TestStore_ConfirmPreservesPosition(t *testing.T) {
	store := NewStore()
	store.Confirm(confirmedText("srv-1", "", "bob", "first"))
	local := pendingText("echo-2", "alice", "second")
	store.AppendPending(local)
	store.Confirm(confirmedText("srv-3", "", "bob", "third"))

	outcome := store.Confirm(confirmedText("srv-2", "echo-2", "alice", "second"))

	assert.Equal(t, ConfirmedEcho, outcome)
	ids := []string{}
	for _, m := range store.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"srv-1", "srv-2", "srv-3"}, ids)
}

func TestStore_ConfirmFallbackMatch(t *testing.T) {
	// An older server build echoes no clientEchoId; the pending entry is
	// matched by author and payload instead.
	store := NewStore()
	local := pendingText("echo-1", "alice", "same words")
	store.AppendPending(local)

	outcome := store.Confirm(confirmedText("srv-1", "", "alice", "same words"))

	assert.Equal(t, ConfirmedFallback, outcome)
	assert.Equal(t, 1, store.Len())
	got, ok := store.Get("srv-1")
	require.True(t, ok)
	assert.Equal(t, StateConfirmed, got.State)
}

func TestStore_ConfirmFallbackIgnoresOtherAuthors(t *testing.T) {
	store := NewStore()
	store.AppendPending(pendingText("echo-1", "alice", "same words"))

	outcome := store.Confirm(confirmedText("srv-1", "", "bob", "same words"))

	assert.Equal(t, AppendedNew, outcome)
	assert.Equal(t, 2, store.Len())
}

func TestStore_ConfirmDuplicateDelivery(t *testing.T) {
	tests := []struct {
		name   string
		server Message
	}{
		{name: "redelivered echo", server: confirmedText("srv-1", "echo-1", "alice", "hi")},
		{name: "redelivered by id", server: confirmedText("srv-1", "", "alice", "hi")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			store.AppendPending(pendingText("echo-1", "alice", "hi"))
			require.Equal(t, ConfirmedEcho, store.Confirm(confirmedText("srv-1", "echo-1", "alice", "hi")))

			assert.Equal(t, DuplicateDropped, store.Confirm(tt.server))
			assert.Equal(t, 1, store.Len())
		})
	}
}

func TestStore_ArrivalOrderNotTimestampOrder(t *testing.T) {
	store := NewStore()
	late := confirmedText("srv-late", "", "bob", "sent earlier, arrived later")
	late.CreatedAt = time.Now().Add(-time.Hour)
	early := confirmedText("srv-early", "", "bob", "sent later, arrived earlier")

	store.Confirm(early)
	store.Confirm(late)

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "srv-early", msgs[0].ID)
	assert.Equal(t, "srv-late", msgs[1].ID)
}

func TestStore_ApplyEdit(t *testing.T) {
	store := NewStore()
	store.Confirm(confirmedText("srv-1", "", "alice", "typo"))

	text := "fixed"
	ok := store.ApplyEdit("srv-1", Patch{Text: &text})

	require.True(t, ok)
	got, _ := store.Get("srv-1")
	assert.Equal(t, "fixed", got.Text)
	assert.Equal(t, StateEdited, got.State)

	assert.False(t, store.ApplyEdit("unknown", Patch{Text: &text}))
}

func TestStore_ApplyDelete(t *testing.T) {
	store := NewStore()
	store.Confirm(confirmedText("srv-1", "", "alice", "going away"))
	store.Confirm(confirmedText("srv-2", "", "alice", "staying"))

	require.True(t, store.ApplyDelete("srv-1"))

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get("srv-1")
	assert.False(t, ok)
	assert.False(t, store.ApplyDelete("srv-1"))
}

func TestStore_ReplaceAllCarriesPending(t *testing.T) {
	store := NewStore()
	store.Confirm(confirmedText("srv-old", "", "bob", "pre-disconnect"))
	local := pendingText("echo-1", "alice", "unacked")
	store.AppendPending(local)

	carried := store.ReplaceAll([]Message{
		confirmedText("srv-1", "", "bob", "from snapshot"),
	})

	assert.Equal(t, 1, carried)
	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.Same(t, local, msgs[1])
	assert.Equal(t, StatePending, msgs[1].State)

	// The carried entry still reconciles by echo afterwards.
	outcome := store.Confirm(confirmedText("srv-2", "echo-1", "alice", "unacked"))
	assert.Equal(t, ConfirmedEcho, outcome)
	assert.Equal(t, 2, store.Len())
}

func TestStore_Withdraw(t *testing.T) {
	store := NewStore()
	local := pendingText("echo-1", "alice", "")
	store.AppendPending(local)

	assert.True(t, store.Withdraw(local))
	assert.Equal(t, 0, store.Len())
	assert.False(t, store.Withdraw(local))
}

func TestDraft_Validate(t *testing.T) {
	assert.ErrorIs(t, Draft{}.Validate(), ErrEmptyDraft)
	assert.NoError(t, Draft{Text: "hi"}.Validate())
	assert.NoError(t, Draft{Attachment: &Attachment{Name: "notes.pdf"}}.Validate())
}

func TestMessage_SamePayload(t *testing.T) {
	code := &Message{Kind: KindCode, Text: "x := 1", Language: "go"}
	assert.True(t, code.SamePayload(&Message{Kind: KindCode, Text: "x := 1", Language: "go"}))
	assert.False(t, code.SamePayload(&Message{Kind: KindCode, Text: "x := 1", Language: "rust"}))
	assert.False(t, code.SamePayload(&Message{Kind: KindText, Text: "x := 1"}))

	file := &Message{Kind: KindFile, File: &FileInfo{Name: "a.png", Mime: "image/png"}}
	assert.True(t, file.SamePayload(&Message{Kind: KindFile, File: &FileInfo{Name: "a.png", Mime: "image/png"}}))
	assert.False(t, file.SamePayload(&Message{Kind: KindFile, File: nil}))
}
