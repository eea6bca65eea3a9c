// Package channel opens the bidirectional event channel to the server
// process and exposes emit/subscribe primitives over it.
package channel

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/fasthttp/websocket"

	"coursechat/internal/event"
)

// Client is injected into the components that need the event channel,
// rather than shared as an ambient singleton.
type Client interface {
	Join(channelID, userID string) error
	Leave(channelID, userID string) error
	Emit(name string, payload interface{}) error
	// Events delivers decoded envelopes in server order. The channel is
	// closed when the connection drops.
	Events() <-chan event.Envelope
	Close() error
}

// Conn is the minimal websocket surface the client needs. Satisfied by
// *websocket.Conn and by in-memory fakes in tests.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// WSClient is the websocket implementation of Client.
type WSClient struct {
	conn    Conn
	events  chan event.Envelope
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the event server. The session token rides in the
// Authorization header and is validated at upgrade time.
func Dial(url, token string, buffer int) (*WSClient, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewFromConn(conn, buffer), nil
}

// NewFromConn wraps an established connection. Used by Dial and by
// loopback connections in tests.
func NewFromConn(conn Conn, buffer int) *WSClient {
	if buffer <= 0 {
		buffer = 256
	}
	c := &WSClient{
		conn:   conn,
		events: make(chan event.Envelope, buffer),
	}
	go c.readPump()
	return c
}

func (c *WSClient) readPump() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("channel: read ended: %v", err)
			return
		}
		env, err := event.Decode(data)
		if err != nil {
			// Malformed frames are dropped at the boundary, never fatal.
			log.Printf("channel: dropping malformed frame: %v", err)
			continue
		}
		c.events <- env
	}
}

func (c *WSClient) Join(channelID, userID string) error {
	return c.Emit(event.JoinChannel, event.JoinPayload{ChannelID: channelID, UserID: userID})
}

func (c *WSClient) Leave(channelID, userID string) error {
	return c.Emit(event.LeaveChannel, event.JoinPayload{ChannelID: channelID, UserID: userID})
}

// Emit sends one event, fire-and-forget.
func (c *WSClient) Emit(name string, payload interface{}) error {
	data, err := event.Marshal(name, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("emit %s: %w", name, err)
	}
	return nil
}

func (c *WSClient) Events() <-chan event.Envelope {
	return c.events
}

func (c *WSClient) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
