package channel

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursechat/internal/event"
)

// scriptConn replays a fixed sequence of inbound frames and records
// written ones.
type scriptConn struct {
	mu      sync.Mutex
	inbound [][]byte
	written [][]byte
	closed  bool
}

func (c *scriptConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return 0, nil, io.EOF
	}
	data := c.inbound[0]
	c.inbound = c.inbound[1:]
	return 1, data, nil
}

func (c *scriptConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed conn")
	}
	c.written = append(c.written, data)
	return nil
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func collect(t *testing.T, events <-chan event.Envelope) []event.Envelope {
	t.Helper()
	var out []event.Envelope
	timeout := time.After(time.Second)
	for {
		select {
		case env, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, env)
		case <-timeout:
			t.Fatal("event channel never closed")
		}
	}
}

func TestWSClient_DeliversEventsInOrder(t *testing.T) {
	frame1, err := event.Marshal(event.Typing, event.TypingPayload{ChannelID: "c1", UserID: "u1", IsTyping: true})
	require.NoError(t, err)
	frame2, err := event.Marshal(event.MessageDeleted, event.DeletedPayload{ID: "m1"})
	require.NoError(t, err)

	conn := &scriptConn{inbound: [][]byte{frame1, frame2}}
	client := NewFromConn(conn, 8)

	envs := collect(t, client.Events())
	require.Len(t, envs, 2)
	assert.Equal(t, event.Typing, envs[0].Event)
	assert.Equal(t, event.MessageDeleted, envs[1].Event)
}

func TestWSClient_DropsMalformedFrames(t *testing.T) {
	good, err := event.Marshal(event.PinMessage, event.PinPayload{MessageID: "m1"})
	require.NoError(t, err)

	conn := &scriptConn{inbound: [][]byte{[]byte("garbage"), []byte(`{"data":{}}`), good}}
	client := NewFromConn(conn, 8)

	envs := collect(t, client.Events())
	require.Len(t, envs, 1)
	assert.Equal(t, event.PinMessage, envs[0].Event)
}

func TestWSClient_EventsChannelClosesOnDisconnect(t *testing.T) {
	conn := &scriptConn{}
	client := NewFromConn(conn, 8)

	_, ok := <-client.Events()
	assert.False(t, ok)
}

func TestWSClient_EmitWritesEnvelope(t *testing.T) {
	conn := &scriptConn{}
	client := NewFromConn(conn, 8)

	require.NoError(t, client.Join("chan-1", "alice"))
	require.NoError(t, client.Leave("chan-1", "alice"))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.written, 2)
	env, err := event.Decode(conn.written[0])
	require.NoError(t, err)
	assert.Equal(t, event.JoinChannel, env.Event)
	p, err := env.DecodeJoin()
	require.NoError(t, err)
	assert.Equal(t, "chan-1", p.ChannelID)
}

func TestWSClient_CloseIsIdempotent(t *testing.T) {
	conn := &scriptConn{}
	client := NewFromConn(conn, 8)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.Error(t, client.Emit(event.PinMessage, event.PinPayload{MessageID: "m1"}))
}
